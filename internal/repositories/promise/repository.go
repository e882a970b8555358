package promise

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

type Tags interface {
	Reconcile(ctx context.Context, entityType models.EntityKind, entityID int64, csv string) ([]models.Tag, error)
	ListForEntity(ctx context.Context, entityType models.EntityKind, entityID int64) ([]models.Tag, error)
	MapForEntities(ctx context.Context, entityType models.EntityKind, entityIDs []int64) (map[int64][]models.Tag, error)
}

// Repository handles promise persistence with source urls and the optional
// politician link.
type Repository struct {
	db     database.DB
	tags   Tags
	logger ectologger.Logger
}

func NewRepository(db database.DB, tags Tags, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		tags:   tags,
		logger: logger,
	}
}

var promiseCols = []string{"id", "title", "description", "category", "status", "promised_date", "politician_id", "created_at", "updated_at"}

func (r *Repository) Create(ctx context.Context, form models.PromiseForm) (*models.PromiseDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "promise.Repository.Create")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	status := form.Status
	if status == "" {
		status = models.PromiseStatusMade
	}

	now := time.Now().UTC()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("promises")
	ib.Cols("title", "description", "category", "status", "promised_date", "politician_id", "created_at", "updated_at")
	ib.Values(form.Title, form.Description, form.Category, status, models.NullDate(form.PromisedDate), form.PoliticianID, now, now)

	query, args := ib.Build()
	query += " RETURNING id"
	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"title": form.Title}).Error("Failed to insert promise")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create promise")
	}

	if err := r.writeAssociations(ctx, tx, id, form); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create promise")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Created promise")
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, form models.PromiseForm) (*models.PromiseDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "promise.Repository.Update")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	status := form.Status
	if status == "" {
		status = models.PromiseStatusMade
	}

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("promises")
	ub.Set(
		ub.Assign("title", form.Title),
		ub.Assign("description", form.Description),
		ub.Assign("category", form.Category),
		ub.Assign("status", status),
		ub.Assign("promised_date", models.NullDate(form.PromisedDate)),
		ub.Assign("politician_id", form.PoliticianID),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to update promise")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update promise")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "promise %d not found", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM promise_sources WHERE promise_id = $1`, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to clear promise sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update promise")
	}

	if err := r.writeAssociations(ctx, tx, id, form); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update promise")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Updated promise")
	return r.GetByID(ctx, id)
}

func (r *Repository) writeAssociations(ctx context.Context, tx database.Tx, id int64, form models.PromiseForm) error {
	if _, err := r.tags.Reconcile(ctx, models.EntityKindPromise, id, form.Tags); err != nil {
		return err
	}

	for _, src := range form.SourceURLs {
		if src.URL == "" {
			continue
		}
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("promise_sources")
		ib.Cols("promise_id", "url", "title")
		ib.Values(id, src.URL, src.Title)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"promise_id": id}).Error("Failed to insert promise source")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write promise sources")
		}
	}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*models.PromiseDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "promise.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(promiseCols...)
	sb.From("promises")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row models.Promise
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "promise %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get promise")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get promise")
	}

	return r.detail(ctx, row)
}

func (r *Repository) detail(ctx context.Context, row models.Promise) (*models.PromiseDetail, error) {
	detail := &models.PromiseDetail{
		Promise:    row,
		Tags:       []models.Tag{},
		SourceURLs: []models.SourceURL{},
	}

	if row.PoliticianID != nil {
		var name string
		err := r.db.GetContext(ctx, &name, `
			SELECT first_name || ' ' || last_name FROM politicians WHERE id = $1
		`, *row.PoliticianID)
		if err == nil {
			detail.PoliticianName = &name
		} else if err.Error() != "sql: no rows in result set" {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": *row.PoliticianID}).Error("Failed to load politician name")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get promise")
		}
	}

	tags, err := r.tags.ListForEntity(ctx, models.EntityKindPromise, row.ID)
	if err != nil {
		return nil, err
	}
	detail.Tags = tags

	if err := r.db.SelectContext(ctx, &detail.SourceURLs, `
		SELECT id, promise_id AS parent_id, url, title
		FROM promise_sources WHERE promise_id = $1 ORDER BY id
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load promise sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get promise")
	}

	return detail, nil
}

func (r *Repository) List(ctx context.Context, status string, politicianID *int64, page, pageSize int) (*models.PromiseListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "promise.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("promises")
	countWhere := r.listWhere(countSb, status, politicianID)
	if len(countWhere) > 0 {
		countSb.Where(countWhere...)
	}

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": status, "politician_id": politicianID}).Error("Failed to count promises")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list promises")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(promiseCols...)
	sb.From("promises")
	where := r.listWhere(sb, status, politicianID)
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rows []models.Promise
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": status, "page": page}).Error("Failed to list promises")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list promises")
	}

	items := make([]models.PromiseDetail, 0, len(rows))
	for _, row := range rows {
		detail, err := r.detail(ctx, row)
		if err != nil {
			return nil, err
		}
		items = append(items, *detail)
	}

	return &models.PromiseListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (r *Repository) listWhere(sb *sqlbuilder.SelectBuilder, status string, politicianID *int64) []string {
	where := []string{}
	if status != "" {
		where = append(where, sb.Equal("status", status))
	}
	if politicianID != nil {
		where = append(where, sb.Equal("politician_id", *politicianID))
	}
	return where
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "promise.Repository.Delete")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`DELETE FROM promise_sources WHERE promise_id = $1`,
		`DELETE FROM entity_tags WHERE entity_type = 'promise' AND entity_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete promise associations")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete promise")
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM promises WHERE id = $1`, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete promise")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete promise")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "promise %d not found", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete promise")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted promise")
	return nil
}
