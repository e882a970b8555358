package bill

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

// Repository handles bill persistence with source urls.
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

var billCols = []string{"id", "title", "bill_number", "summary", "status", "introduced_date", "full_text_url", "created_at", "updated_at"}

func (r *Repository) Create(ctx context.Context, form models.BillForm) (*models.BillDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "bill.Repository.Create")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	status := form.Status
	if status == "" {
		status = models.BillStatusIntroduced
	}

	now := time.Now().UTC()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("bills")
	ib.Cols("title", "bill_number", "summary", "status", "introduced_date", "full_text_url", "created_at", "updated_at")
	ib.Values(form.Title, form.BillNumber, form.Summary, status, models.NullDate(form.IntroducedDate), models.NullString(form.FullTextURL), now, now)

	query, args := ib.Build()
	query += " RETURNING id"
	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"title": form.Title}).Error("Failed to insert bill")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create bill")
	}

	if err := r.writeAssociations(ctx, tx, id, form); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create bill")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Created bill")
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, form models.BillForm) (*models.BillDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "bill.Repository.Update")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	status := form.Status
	if status == "" {
		status = models.BillStatusIntroduced
	}

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("bills")
	ub.Set(
		ub.Assign("title", form.Title),
		ub.Assign("bill_number", form.BillNumber),
		ub.Assign("summary", form.Summary),
		ub.Assign("status", status),
		ub.Assign("introduced_date", models.NullDate(form.IntroducedDate)),
		ub.Assign("full_text_url", models.NullString(form.FullTextURL)),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to update bill")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update bill")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "bill %d not found", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bill_sources WHERE bill_id = $1`, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to clear bill sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update bill")
	}

	if err := r.writeAssociations(ctx, tx, id, form); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update bill")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Updated bill")
	return r.GetByID(ctx, id)
}

func (r *Repository) writeAssociations(ctx context.Context, tx database.Tx, id int64, form models.BillForm) error {
	if _, err := r.tags.Reconcile(ctx, models.EntityKindBill, id, form.Tags); err != nil {
		return err
	}

	for _, src := range form.SourceURLs {
		if src.URL == "" {
			continue
		}
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("bill_sources")
		ib.Cols("bill_id", "url", "title")
		ib.Values(id, src.URL, src.Title)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"bill_id": id}).Error("Failed to insert bill source")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write bill sources")
		}
	}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*models.BillDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "bill.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(billCols...)
	sb.From("bills")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row models.Bill
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "bill %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get bill")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get bill")
	}

	return r.detail(ctx, row)
}

func (r *Repository) detail(ctx context.Context, row models.Bill) (*models.BillDetail, error) {
	detail := &models.BillDetail{
		Bill:       row,
		Tags:       []models.Tag{},
		SourceURLs: []models.SourceURL{},
	}

	tags, err := r.tags.ListForEntity(ctx, models.EntityKindBill, row.ID)
	if err != nil {
		return nil, err
	}
	detail.Tags = tags

	if err := r.db.SelectContext(ctx, &detail.SourceURLs, `
		SELECT id, bill_id AS parent_id, url, title
		FROM bill_sources WHERE bill_id = $1 ORDER BY id
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load bill sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get bill")
	}

	return detail, nil
}

func (r *Repository) List(ctx context.Context, status, search string, page, pageSize int) (*models.BillListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "bill.Repository.List")
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
	countSb.From("bills")
	countWhere := r.listWhere(countSb, status, search)
	if len(countWhere) > 0 {
		countSb.Where(countWhere...)
	}

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": status, "search": search}).Error("Failed to count bills")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list bills")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(billCols...)
	sb.From("bills")
	where := r.listWhere(sb, status, search)
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rows []models.Bill
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": status, "page": page}).Error("Failed to list bills")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list bills")
	}

	items := make([]models.BillDetail, 0, len(rows))
	for _, row := range rows {
		detail, err := r.detail(ctx, row)
		if err != nil {
			return nil, err
		}
		items = append(items, *detail)
	}

	return &models.BillListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (r *Repository) listWhere(sb *sqlbuilder.SelectBuilder, status, search string) []string {
	where := []string{}
	if status != "" {
		where = append(where, sb.Equal("status", status))
	}
	if search != "" {
		like := "%" + search + "%"
		where = append(where, sb.Or(sb.ILike("title", like), sb.ILike("bill_number", like)))
	}
	return where
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "bill.Repository.Delete")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`DELETE FROM bill_sources WHERE bill_id = $1`,
		`DELETE FROM entity_tags WHERE entity_type = 'bill' AND entity_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete bill associations")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete bill")
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete bill")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete bill")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "bill %d not found", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete bill")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted bill")
	return nil
}
