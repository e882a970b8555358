package bill

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/internal/repositories/bill"
	astercontext "github.com/Ramsey-B/aster/pkg/context"
	"github.com/Ramsey-B/aster/pkg/events"
	"github.com/Ramsey-B/aster/pkg/metrics"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
	"github.com/Ramsey-B/aster/pkg/utils"
)

// Register registers bill routes. Reads are public; writes are admin.
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
}

func requireAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	if astercontext.GetUserID(ctx) == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if !astercontext.IsAdmin(ctx) {
		return httperror.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "id must be numeric")
	}
	return id, nil
}

func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "bill_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	status := c.QueryParam("status")
	search := c.QueryParam("search")

	ctx, repo, err := ectoinject.GetContext[*bill.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.List(ctx, status, search, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "bill_handler.Get")
	defer span.End()

	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*bill.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	detail, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, detail)
}

func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "bill_handler.Create")
	defer span.End()

	if err := requireAdmin(c); err != nil {
		return err
	}

	form, err := utils.BindRequest[models.BillForm](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*bill.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	detail, err := repo.Create(ctx, form)
	if err != nil {
		return err
	}

	metrics.EntityWrites.WithLabelValues("bill", "create").Inc()
	if ctx, emitter, err := ectoinject.GetContext[events.Emitter](ctx); err == nil {
		emitter.EntityChanged(ctx, events.TypeEntityCreated, models.EntityKindBill, detail.ID, astercontext.GetUserID(ctx), events.SourceDirect)
	}

	return c.JSON(http.StatusCreated, detail)
}

func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "bill_handler.Update")
	defer span.End()

	if err := requireAdmin(c); err != nil {
		return err
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	form, err := utils.BindRequest[models.BillForm](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*bill.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	detail, err := repo.Update(ctx, id, form)
	if err != nil {
		return err
	}

	metrics.EntityWrites.WithLabelValues("bill", "update").Inc()
	if ctx, emitter, err := ectoinject.GetContext[events.Emitter](ctx); err == nil {
		emitter.EntityChanged(ctx, events.TypeEntityUpdated, models.EntityKindBill, detail.ID, astercontext.GetUserID(ctx), events.SourceDirect)
	}

	return c.JSON(http.StatusOK, detail)
}

func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "bill_handler.Delete")
	defer span.End()

	if err := requireAdmin(c); err != nil {
		return err
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*bill.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	metrics.EntityWrites.WithLabelValues("bill", "delete").Inc()
	if ctx, emitter, err := ectoinject.GetContext[events.Emitter](ctx); err == nil {
		emitter.EntityChanged(ctx, events.TypeEntityDeleted, models.EntityKindBill, id, astercontext.GetUserID(ctx), events.SourceDirect)
	}

	return c.NoContent(http.StatusNoContent)
}
