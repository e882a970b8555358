package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/aster/config"
	"github.com/Ramsey-B/aster/internal/repositories/bill"
	"github.com/Ramsey-B/aster/internal/repositories/party"
	"github.com/Ramsey-B/aster/internal/repositories/pendingedit"
	"github.com/Ramsey-B/aster/internal/repositories/politician"
	"github.com/Ramsey-B/aster/internal/repositories/promise"
	"github.com/Ramsey-B/aster/internal/repositories/tag"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/events"
	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/middleware"
	"github.com/Ramsey-B/aster/pkg/moderation"
	"github.com/Ramsey-B/aster/pkg/redis"
	billroute "github.com/Ramsey-B/aster/pkg/routes/bill"
	"github.com/Ramsey-B/aster/pkg/routes/health"
	partyroute "github.com/Ramsey-B/aster/pkg/routes/party"
	pendingeditroute "github.com/Ramsey-B/aster/pkg/routes/pendingedit"
	politicianroute "github.com/Ramsey-B/aster/pkg/routes/politician"
	promiseroute "github.com/Ramsey-B/aster/pkg/routes/promise"
	"github.com/Ramsey-B/aster/pkg/startup"
	"github.com/Ramsey-B/aster/pkg/tracing"
	"github.com/Ramsey-B/aster/pkg/tracing/exporters"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	shutdownTracing := setupTracing(ctx, cfg, logger)
	defer shutdownTracing()

	var (
		sqlxDB      *sqlx.DB
		redisClient *redis.Client
		producer    *kafka.Producer
	)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
			db, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				AutoRollback:        true,
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				return err
			}

			sqlxDB = db
			return nil
		},
		stop: func(ctx context.Context) error {
			if sqlxDB != nil {
				return sqlxDB.Close()
			}
			return nil
		},
	})

	if cfg.RateLimitEnabled {
		boot.AddDependency(&dependency{
			name: "redis",
			start: func(ctx context.Context) error {
				client, err := redis.NewClient(redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				redisClient = client
				return nil
			},
			stop: func(ctx context.Context) error {
				if redisClient != nil {
					return redisClient.Close()
				}
				return nil
			},
		})
	}

	if cfg.KafkaEnabled {
		boot.AddDependency(&dependency{
			name: "kafka",
			start: func(ctx context.Context) error {
				producer = kafka.NewProducer(kafka.ParseConfig(cfg.KafkaBrokers, cfg.KafkaOutputTopic), logger)
				return nil
			},
			stop: func(ctx context.Context) error {
				if producer != nil {
					return producer.Close()
				}
				return nil
			},
		})
	}

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	db := database.NewDatabaseInstance(sqlxDB, logger)

	tagRepo := tag.NewRepository(db, logger)
	politicianRepo := politician.NewRepository(db, tagRepo, logger)
	partyRepo := party.NewRepository(db, tagRepo, logger)
	promiseRepo := promise.NewRepository(db, tagRepo, logger)
	billRepo := bill.NewRepository(db, tagRepo, logger)
	pendingEditRepo := pendingedit.NewRepository(db, logger)

	var emitter events.Emitter = events.NewNoopEmitter()
	if producer != nil {
		emitter = events.NewKafkaEmitter(producer, logger)
	}

	engine := moderation.NewEngine(pendingEditRepo, []moderation.EntityWriter{
		moderation.NewPoliticianWriter(politicianRepo),
		moderation.NewPartyWriter(partyRepo),
		moderation.NewPromiseWriter(promiseRepo),
		moderation.NewBillWriter(billRepo),
	}, emitter, logger)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}
	mustRegister(logger, ectoinject.RegisterInstance[ectologger.Logger](container, logger))
	mustRegister(logger, ectoinject.RegisterInstance[database.DB](container, db))
	mustRegister(logger, ectoinject.RegisterInstance[events.Emitter](container, emitter))
	mustRegister(logger, ectoinject.RegisterInstance[*politician.Repository](container, politicianRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*party.Repository](container, partyRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*promise.Repository](container, promiseRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*bill.Repository](container, billRepo))

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	if cfg.AuthEnabled {
		e.Use(middleware.Authentication(logger, cfg.AuthIssuerURL, cfg.AuthClientID))
	} else {
		logger.Warn("AUTH_ENABLED is false; trusting identity headers")
		e.Use(middleware.TestAuth())
	}

	api := e.Group("/api/v1")
	politicianroute.Register(api.Group("/politicians"))
	partyroute.Register(api.Group("/parties"))
	promiseroute.Register(api.Group("/promises"))
	billroute.Register(api.Group("/bills"))

	var submitMiddleware []echo.MiddlewareFunc
	if redisClient != nil {
		limiter := redis.NewRateLimiter(redisClient, "aster:submissions:")
		submitMiddleware = append(submitMiddleware, middleware.RateLimit(limiter, cfg.RateLimitSubmissions, cfg.RateLimitWindow, logger))
	}
	pendingeditroute.NewHandler(engine, logger).RegisterRoutes(api.Group("/pending-edits"), submitMiddleware...)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	checker := health.NewChecker(sqlxDB, healthRedis(redisClient), appVersion())
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server stopped")
		}
	}()
	logger.WithFields(map[string]any{"port": cfg.Port}).Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server cleanly")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop dependencies cleanly")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func setupTracing(ctx context.Context, cfg config.Config, logger ectologger.Logger) func() {
	if !cfg.TracingEnabled {
		tracing.SetTracer(otel.Tracer(cfg.AppName))
		return func() {}
	}

	var exporter sdktrace.SpanExporter
	switch cfg.TracingExporterType {
	case "otlp", "grpc", "http":
		otlpCfg := exporters.DefaultOTLPConfig()
		otlpCfg.Endpoint = cfg.TracingEndpoint
		if cfg.TracingExporterType == "http" {
			otlpCfg.Protocol = "http"
		}
		exp, err := exporters.NewOTLPExporter(ctx, otlpCfg)
		if err != nil {
			logger.WithError(err).Error("Failed to create OTLP exporter, falling back to console")
			exporter = &exporters.ConsoleExporter{}
		} else {
			exporter = exp
		}
	default:
		exporter = &exporters.ConsoleExporter{}
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shut down tracer provider")
		}
	}
}

// healthRedis avoids putting a typed nil pointer inside the checker's interface.
func healthRedis(client *redis.Client) interface {
	Ping(ctx context.Context) error
} {
	if client == nil {
		return nil
	}
	return client
}

func appVersion() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}

func mustRegister(logger ectologger.Logger, err error) {
	if err != nil {
		logger.WithError(err).Error("Failed to register dependency")
		os.Exit(1)
	}
}

// dependency is a closure-backed startup.Dependency.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}
