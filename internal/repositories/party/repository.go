package party

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

// Repository handles party persistence with election history and
// controversies.
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

var partyCols = []string{"id", "name", "abbreviation", "description", "logo_url", "website_url", "founding_date", "ideology", "created_at", "updated_at"}

func (r *Repository) Create(ctx context.Context, form models.PartyForm) (*models.PartyDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.Create")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("parties")
	ib.Cols("name", "abbreviation", "description", "logo_url", "website_url", "founding_date", "ideology", "created_at", "updated_at")
	ib.Values(form.Name, form.Abbreviation, form.Description, models.NullString(form.LogoURL), models.NullString(form.WebsiteURL), models.NullDate(form.FoundingDate), form.Ideology, now, now)

	query, args := ib.Build()
	query += " RETURNING id"
	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": form.Name}).Error("Failed to insert party")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create party")
	}

	if err := r.writeAssociations(ctx, tx, id, form); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create party")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Created party")
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, form models.PartyForm) (*models.PartyDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.Update")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("parties")
	ub.Set(
		ub.Assign("name", form.Name),
		ub.Assign("abbreviation", form.Abbreviation),
		ub.Assign("description", form.Description),
		ub.Assign("logo_url", models.NullString(form.LogoURL)),
		ub.Assign("website_url", models.NullString(form.WebsiteURL)),
		ub.Assign("founding_date", models.NullDate(form.FoundingDate)),
		ub.Assign("ideology", form.Ideology),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to update party")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update party")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "party %d not found", id)
	}

	if err := r.deleteCollections(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := r.writeAssociations(ctx, tx, id, form); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update party")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Updated party")
	return r.GetByID(ctx, id)
}

func (r *Repository) writeAssociations(ctx context.Context, tx database.Tx, id int64, form models.PartyForm) error {
	if _, err := r.tags.Reconcile(ctx, models.EntityKindParty, id, form.Tags); err != nil {
		return err
	}

	for _, entry := range form.ElectionHistory {
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("election_history")
		ib.Cols("party_id", "election_year", "seats_won", "vote_percent", "election_notes")
		ib.Values(id, entry.ElectionYear, entry.SeatsWon, entry.VotePercent, entry.ElectionNotes)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"party_id": id}).Error("Failed to insert election history entry")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write election history")
		}
	}

	for _, c := range form.Controversies {
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("controversies")
		ib.Cols("party_id", "title", "description", "year")
		ib.Values(id, c.Title, c.Description, c.Year)
		query, args := ib.Build()
		query += " RETURNING id"
		var controversyID int64
		if err := tx.GetContext(ctx, &controversyID, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"party_id": id}).Error("Failed to insert controversy")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write controversies")
		}

		for _, src := range c.SourceURLs {
			if src.URL == "" {
				continue
			}
			sib := sqlbuilder.PostgreSQL.NewInsertBuilder()
			sib.InsertInto("controversy_sources")
			sib.Cols("controversy_id", "url", "title")
			sib.Values(controversyID, src.URL, src.Title)
			query, args := sib.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"controversy_id": controversyID}).Error("Failed to insert controversy source")
				return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write controversies")
			}
		}
	}

	return nil
}

func (r *Repository) deleteCollections(ctx context.Context, tx database.Tx, id int64) error {
	statements := []string{
		`DELETE FROM controversy_sources WHERE controversy_id IN (SELECT id FROM controversies WHERE party_id = $1)`,
		`DELETE FROM controversies WHERE party_id = $1`,
		`DELETE FROM election_history WHERE party_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"party_id": id}).Error("Failed to clear party collections")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to rewrite party collections")
		}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*models.PartyDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(partyCols...)
	sb.From("parties")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row models.Party
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "party %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get party")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get party")
	}

	return r.detail(ctx, row)
}

func (r *Repository) detail(ctx context.Context, row models.Party) (*models.PartyDetail, error) {
	detail := &models.PartyDetail{
		Party:           row,
		Tags:            []models.Tag{},
		ElectionHistory: []models.ElectionHistoryEntry{},
		Controversies:   []models.ControversyDetail{},
	}

	if err := r.db.GetContext(ctx, &detail.MemberCount, `
		SELECT COUNT(*) FROM party_memberships WHERE party_id = $1 AND is_active = true
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to count party members")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get party")
	}

	tags, err := r.tags.ListForEntity(ctx, models.EntityKindParty, row.ID)
	if err != nil {
		return nil, err
	}
	detail.Tags = tags

	if err := r.db.SelectContext(ctx, &detail.ElectionHistory, `
		SELECT id, party_id, election_year, seats_won, vote_percent, election_notes
		FROM election_history WHERE party_id = $1 ORDER BY election_year DESC NULLS LAST, id
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load election history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get party")
	}

	var controversies []models.Controversy
	if err := r.db.SelectContext(ctx, &controversies, `
		SELECT id, party_id, title, description, year
		FROM controversies WHERE party_id = $1 ORDER BY id
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load controversies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get party")
	}
	for _, c := range controversies {
		d := models.ControversyDetail{Controversy: c, SourceURLs: []models.SourceURL{}}
		if err := r.db.SelectContext(ctx, &d.SourceURLs, `
			SELECT id, controversy_id AS parent_id, url, title
			FROM controversy_sources WHERE controversy_id = $1 ORDER BY id
		`, c.ID); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"controversy_id": c.ID}).Error("Failed to load controversy sources")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get party")
		}
		detail.Controversies = append(detail.Controversies, d)
	}

	return detail, nil
}

func (r *Repository) List(ctx context.Context, search string, page, pageSize int) (*models.PartyListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.List")
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
	countSb.From("parties")
	if search != "" {
		like := "%" + search + "%"
		countSb.Where(countSb.Or(countSb.ILike("name", like), countSb.ILike("abbreviation", like)))
	}

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"search": search}).Error("Failed to count parties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list parties")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(partyCols...)
	sb.From("parties")
	if search != "" {
		like := "%" + search + "%"
		sb.Where(sb.Or(sb.ILike("name", like), sb.ILike("abbreviation", like)))
	}
	sb.OrderBy("name")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rows []models.Party
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"search": search, "page": page}).Error("Failed to list parties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list parties")
	}

	items := make([]models.PartyDetail, 0, len(rows))
	for _, row := range rows {
		detail, err := r.detail(ctx, row)
		if err != nil {
			return nil, err
		}
		items = append(items, *detail)
	}

	return &models.PartyListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.Delete")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	if err := r.deleteCollections(ctx, tx, id); err != nil {
		return err
	}

	statements := []string{
		`DELETE FROM entity_tags WHERE entity_type = 'party' AND entity_id = $1`,
		`DELETE FROM party_memberships WHERE party_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete party associations")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete party")
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM parties WHERE id = $1`, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete party")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete party")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "party %d not found", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete party")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted party")
	return nil
}
