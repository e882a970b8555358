package pendingedit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Repository handles pending edit persistence and the moderation status
// transitions.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var pendingEditCols = []string{"id", "entity_type", "entity_id", "proposed_data", "status", "notes", "submitter_id", "moderator_id", "denied_reason", "created_at", "updated_at"}

// Create stores a new proposal in pending status.
func (r *Repository) Create(ctx context.Context, edit models.PendingEdit) (*models.PendingEdit, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingedit.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("pending_edits")
	ib.Cols("entity_type", "entity_id", "proposed_data", "status", "notes", "submitter_id", "created_at", "updated_at")
	ib.Values(string(edit.EntityType), edit.EntityID, []byte(edit.ProposedData), models.PendingEditStatusPending, edit.Notes, edit.SubmitterID, now, now)

	query, args := ib.Build()
	query += " RETURNING " + columnList()
	var created models.PendingEdit
	if err := r.db.GetContext(ctx, &created, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": edit.EntityType, "entity_id": edit.EntityID, "submitter_id": edit.SubmitterID}).Error("Failed to create pending edit")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create pending edit")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": created.ID, "entity_type": created.EntityType}).Info("Created pending edit")
	return &created, nil
}

// GetByID loads a pending edit regardless of status.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.PendingEdit, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingedit.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(pendingEditCols...)
	sb.From("pending_edits")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var edit models.PendingEdit
	if err := r.db.GetContext(ctx, &edit, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "pending edit %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get pending edit")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get pending edit")
	}

	return &edit, nil
}

// List returns proposals newest-first with optional status and entity type
// filters.
func (r *Repository) List(ctx context.Context, filter models.PendingEditFilter) (*models.PendingEditListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingedit.Repository.List")
	defer span.End()

	page := filter.Page
	pageSize := filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("pending_edits")
	countWhere := listWhere(countSb, filter)
	if len(countWhere) > 0 {
		countSb.Where(countWhere...)
	}

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": filter.Status, "entity_type": filter.EntityType}).Error("Failed to count pending edits")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending edits")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(pendingEditCols...)
	sb.From("pending_edits")
	where := listWhere(sb, filter)
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	edits := []models.PendingEdit{}
	if err := r.db.SelectContext(ctx, &edits, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": filter.Status, "entity_type": filter.EntityType, "page": page}).Error("Failed to list pending edits")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending edits")
	}

	return &models.PendingEditListResponse{
		Items:      edits,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func listWhere(sb *sqlbuilder.SelectBuilder, filter models.PendingEditFilter) []string {
	where := []string{}
	if filter.Status != "" {
		where = append(where, sb.Equal("status", filter.Status))
	}
	if filter.EntityType != "" {
		where = append(where, sb.Equal("entity_type", filter.EntityType))
	}
	return where
}

// UpdateData replaces the proposed payload. Conditional on pending status so a
// moderated proposal cannot be rewritten; returns the affected row count check
// as a Conflict.
func (r *Repository) UpdateData(ctx context.Context, id int64, data []byte) (*models.PendingEdit, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingedit.Repository.UpdateData")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("pending_edits")
	ub.Set(
		ub.Assign("proposed_data", data),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("status", models.PendingEditStatusPending),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to update pending edit data")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update pending edit")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "pending edit %d is not pending", id)
	}

	return r.GetByID(ctx, id)
}

// Transition moves a proposal from one status to another, stamping the
// moderator and optionally backfilling entity_id for approved creations. The
// from-status guard makes concurrent moderation a lost race, not a double
// apply; returns false when another transition won.
func (r *Repository) Transition(ctx context.Context, id int64, from, to, moderatorID string, reason *string, entityID *int64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingedit.Repository.Transition")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("pending_edits")
	assignments := []string{
		ub.Assign("status", to),
		ub.Assign("moderator_id", moderatorID),
		ub.Assign("updated_at", now),
	}
	if reason != nil {
		assignments = append(assignments, ub.Assign("denied_reason", *reason))
	}
	if entityID != nil {
		assignments = append(assignments, ub.Assign("entity_id", *entityID))
	}
	ub.Set(assignments...)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("status", from),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "from": from, "to": to}).Error("Failed to transition pending edit")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to transition pending edit")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "from": from, "to": to, "moderator_id": moderatorID}).Info("Transitioned pending edit")
	return true, nil
}

func columnList() string {
	return strings.Join(pendingEditCols, ", ")
}
