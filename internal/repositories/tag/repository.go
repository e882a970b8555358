package tag

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Repository handles the shared tag vocabulary and entity_tags joins.
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

// Reconcile replaces an entity's tag set with the tags named in the CSV
// string. Tag rows are get-or-created by name; tag rows themselves are never
// deleted, only the joins. Joins the caller's transaction when one is open.
func (r *Repository) Reconcile(ctx context.Context, entityType models.EntityKind, entityID int64, csv string) ([]models.Tag, error) {
	ctx, span := tracing.StartSpan(ctx, "tag.Repository.Reconcile")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("entity_tags")
	db.Where(
		db.Equal("entity_type", string(entityType)),
		db.Equal("entity_id", entityID),
	)
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": entityType, "entity_id": entityID}).Error("Failed to clear entity tags")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reconcile tags")
	}

	names := models.SplitTagCSV(csv)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		t, err := r.getOrCreate(ctx, tx, name)
		if err != nil {
			return nil, err
		}

		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("entity_tags")
		ib.Cols("entity_type", "entity_id", "tag_id")
		ib.Values(string(entityType), entityID, t.ID)
		query, args := ib.Build()
		query += " ON CONFLICT (entity_type, entity_id, tag_id) DO NOTHING"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": entityType, "entity_id": entityID, "tag_id": t.ID}).Error("Failed to link tag")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reconcile tags")
		}

		tags = append(tags, t)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reconcile tags")
	}

	return tags, nil
}

func (r *Repository) getOrCreate(ctx context.Context, tx database.Tx, name string) (models.Tag, error) {
	var t models.Tag

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("tags")
	sb.Where(sb.Equal("name", name))
	query, args := sb.Build()
	err := tx.GetContext(ctx, &t, query, args...)
	if err == nil {
		return t, nil
	}
	if err.Error() != "sql: no rows in result set" {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": name}).Error("Failed to look up tag")
		return t, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up tag")
	}

	// Concurrent creates race on the name unique constraint; the conflict
	// clause plus re-select keeps this idempotent.
	insert := `
		INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name
	`
	err = tx.GetContext(ctx, &t, insert, name)
	if err == nil {
		return t, nil
	}
	if err.Error() != "sql: no rows in result set" {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": name}).Error("Failed to create tag")
		return t, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create tag")
	}

	if err := tx.GetContext(ctx, &t, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": name}).Error("Failed to re-read tag after conflict")
		return t, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create tag")
	}

	return t, nil
}

// ListForEntity returns an entity's tags ordered by name.
func (r *Repository) ListForEntity(ctx context.Context, entityType models.EntityKind, entityID int64) ([]models.Tag, error) {
	ctx, span := tracing.StartSpan(ctx, "tag.Repository.ListForEntity")
	defer span.End()

	query := `
		SELECT t.id, t.name
		FROM tags t
		JOIN entity_tags et ON et.tag_id = t.id
		WHERE et.entity_type = $1 AND et.entity_id = $2
		ORDER BY t.name
	`

	tags := []models.Tag{}
	if err := r.db.SelectContext(ctx, &tags, query, string(entityType), entityID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": entityType, "entity_id": entityID}).Error("Failed to list entity tags")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tags")
	}

	return tags, nil
}

// MapForEntities returns tags for a batch of entities keyed by entity id.
// Used by list endpoints to avoid per-row queries.
func (r *Repository) MapForEntities(ctx context.Context, entityType models.EntityKind, entityIDs []int64) (map[int64][]models.Tag, error) {
	ctx, span := tracing.StartSpan(ctx, "tag.Repository.MapForEntities")
	defer span.End()

	result := map[int64][]models.Tag{}
	if len(entityIDs) == 0 {
		return result, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("et.entity_id", "t.id", "t.name")
	sb.From("tags t")
	sb.Join("entity_tags et", "et.tag_id = t.id")
	sb.Where(
		sb.Equal("et.entity_type", string(entityType)),
		sb.In("et.entity_id", sqlbuilder.Flatten(entityIDs)...),
	)
	sb.OrderBy("t.name")

	query, args := sb.Build()
	var rows []struct {
		EntityID int64  `db:"entity_id"`
		ID       int64  `db:"id"`
		Name     string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": entityType, "entity_ids": entityIDs}).Error("Failed to map entity tags")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tags")
	}

	for _, row := range rows {
		result[row.EntityID] = append(result[row.EntityID], models.Tag{ID: row.ID, Name: row.Name})
	}
	return result, nil
}
