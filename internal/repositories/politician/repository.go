package politician

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

// Tags is the tag reconciliation surface the politician writes depend on.
type Tags interface {
	Reconcile(ctx context.Context, entityType models.EntityKind, entityID int64, csv string) ([]models.Tag, error)
	ListForEntity(ctx context.Context, entityType models.EntityKind, entityID int64) ([]models.Tag, error)
	MapForEntities(ctx context.Context, entityType models.EntityKind, entityIDs []int64) (map[int64][]models.Tag, error)
}

// Repository handles politician persistence including party membership and the
// owned sub-entity collections.
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

var politicianCols = []string{"id", "first_name", "last_name", "bio", "image_url", "website_url", "date_of_birth", "constituency", "current_position", "created_at", "updated_at"}

// Create inserts a politician with its memberships, tags and sub-entity
// collections in one transaction.
func (r *Repository) Create(ctx context.Context, form models.PoliticianForm) (*models.PoliticianDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "politician.Repository.Create")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("politicians")
	ib.Cols("first_name", "last_name", "bio", "image_url", "website_url", "date_of_birth", "constituency", "current_position", "created_at", "updated_at")
	ib.Values(form.FirstName, form.LastName, form.Bio, models.NullString(form.ImageURL), models.NullString(form.WebsiteURL), models.NullDate(form.DateOfBirth), form.Constituency, form.CurrentPosition, now, now)

	query, args := ib.Build()
	query += " RETURNING id"
	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"first_name": form.FirstName, "last_name": form.LastName}).Error("Failed to insert politician")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create politician")
	}

	if err := r.writeAssociations(ctx, tx, id, form); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create politician")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Created politician")
	return r.GetByID(ctx, id)
}

// Update rewrites the politician row and replaces every owned collection in
// one transaction.
func (r *Repository) Update(ctx context.Context, id int64, form models.PoliticianForm) (*models.PoliticianDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "politician.Repository.Update")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("politicians")
	ub.Set(
		ub.Assign("first_name", form.FirstName),
		ub.Assign("last_name", form.LastName),
		ub.Assign("bio", form.Bio),
		ub.Assign("image_url", models.NullString(form.ImageURL)),
		ub.Assign("website_url", models.NullString(form.WebsiteURL)),
		ub.Assign("date_of_birth", models.NullDate(form.DateOfBirth)),
		ub.Assign("constituency", form.Constituency),
		ub.Assign("current_position", form.CurrentPosition),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to update politician")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update politician")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "politician %d not found", id)
	}

	if err := r.deleteCollections(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := r.writeAssociations(ctx, tx, id, form); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update politician")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Updated politician")
	return r.GetByID(ctx, id)
}

// writeAssociations reconciles tags, syncs party membership and inserts the
// replacement sub-entity collections. Runs inside the caller's transaction.
func (r *Repository) writeAssociations(ctx context.Context, tx database.Tx, id int64, form models.PoliticianForm) error {
	if _, err := r.tags.Reconcile(ctx, models.EntityKindPolitician, id, form.Tags); err != nil {
		return err
	}

	if err := r.syncPartyMembership(ctx, tx, id, form.PartyID); err != nil {
		return err
	}

	for _, entry := range form.CareerEntries {
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("career_entries")
		ib.Cols("politician_id", "title", "organization", "start_year", "end_year", "description")
		ib.Values(id, entry.Title, entry.Organization, entry.StartYear, entry.EndYear, entry.Description)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": id}).Error("Failed to insert career entry")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write career entries")
		}
	}

	for _, decl := range form.AssetDeclarations {
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("asset_declarations")
		ib.Cols("politician_id", "year", "description", "value", "currency")
		ib.Values(id, decl.Year, decl.Description, decl.Value, decl.Currency)
		query, args := ib.Build()
		query += " RETURNING id"
		var declID int64
		if err := tx.GetContext(ctx, &declID, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": id}).Error("Failed to insert asset declaration")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write asset declarations")
		}

		for _, src := range decl.SourceURLs {
			if src.URL == "" {
				continue
			}
			sib := sqlbuilder.PostgreSQL.NewInsertBuilder()
			sib.InsertInto("asset_declaration_sources")
			sib.Cols("asset_declaration_id", "url", "title")
			sib.Values(declID, src.URL, src.Title)
			query, args := sib.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"asset_declaration_id": declID}).Error("Failed to insert asset declaration source")
				return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write asset declarations")
			}
		}
	}

	for _, record := range form.CriminalRecords {
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("criminal_records")
		ib.Cols("politician_id", "case_number", "court", "summary", "status", "year")
		ib.Values(id, record.CaseNumber, record.Court, record.Summary, record.Status, record.Year)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": id}).Error("Failed to insert criminal record")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write criminal records")
		}
	}

	for _, link := range form.SocialMediaLinks {
		if link.URL == "" {
			continue
		}
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("social_media_links")
		ib.Cols("politician_id", "platform", "url")
		ib.Values(id, link.Platform, link.URL)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": id}).Error("Failed to insert social media link")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write social media links")
		}
	}

	return nil
}

// deleteCollections clears the owned collections ahead of a full rewrite.
// Nested source rows go first, then their parents.
func (r *Repository) deleteCollections(ctx context.Context, tx database.Tx, id int64) error {
	statements := []string{
		`DELETE FROM asset_declaration_sources WHERE asset_declaration_id IN (SELECT id FROM asset_declarations WHERE politician_id = $1)`,
		`DELETE FROM asset_declarations WHERE politician_id = $1`,
		`DELETE FROM career_entries WHERE politician_id = $1`,
		`DELETE FROM criminal_records WHERE politician_id = $1`,
		`DELETE FROM social_media_links WHERE politician_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": id}).Error("Failed to clear politician collections")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to rewrite politician collections")
		}
	}
	return nil
}

// syncPartyMembership keeps at most one active membership per politician.
// A matching active membership is left untouched so its started_at survives.
func (r *Repository) syncPartyMembership(ctx context.Context, tx database.Tx, id int64, partyID *int64) error {
	now := time.Now().UTC()

	var current *int64
	err := tx.GetContext(ctx, &current, `SELECT party_id FROM party_memberships WHERE politician_id = $1 AND is_active = true LIMIT 1`, id)
	if err != nil && err.Error() != "sql: no rows in result set" {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": id}).Error("Failed to read active party membership")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to sync party membership")
	}

	if current != nil && partyID != nil && *current == *partyID {
		return nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("party_memberships")
	ub.Set(ub.Assign("is_active", false), ub.Assign("ended_at", now))
	ub.Where(
		ub.Equal("politician_id", id),
		ub.Equal("is_active", true),
	)
	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": id}).Error("Failed to deactivate party memberships")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to sync party membership")
	}

	if partyID == nil {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("party_memberships")
	ib.Cols("politician_id", "party_id", "is_active", "started_at")
	ib.Values(id, *partyID, true, now)
	query, args = ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"politician_id": id, "party_id": *partyID}).Error("Failed to insert party membership")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to sync party membership")
	}

	return nil
}

// GetByID loads the full politician detail, collections included.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.PoliticianDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "politician.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(politicianCols...)
	sb.From("politicians")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row models.Politician
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "politician %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get politician")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get politician")
	}

	return r.detail(ctx, row)
}

func (r *Repository) detail(ctx context.Context, row models.Politician) (*models.PoliticianDetail, error) {
	detail := &models.PoliticianDetail{
		Politician:        row,
		Tags:              []models.Tag{},
		CareerEntries:     []models.CareerEntry{},
		AssetDeclarations: []models.AssetDeclarationDetail{},
		CriminalRecords:   []models.CriminalRecord{},
		SocialMediaLinks:  []models.SocialMediaLink{},
	}

	var membership struct {
		PartyID   int64  `db:"party_id"`
		PartyName string `db:"party_name"`
	}
	err := r.db.GetContext(ctx, &membership, `
		SELECT pm.party_id, p.name AS party_name
		FROM party_memberships pm
		JOIN parties p ON p.id = pm.party_id
		WHERE pm.politician_id = $1 AND pm.is_active = true
		LIMIT 1
	`, row.ID)
	if err == nil {
		detail.PartyID = &membership.PartyID
		detail.PartyName = &membership.PartyName
	} else if err.Error() != "sql: no rows in result set" {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load party membership")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get politician")
	}

	tags, err := r.tags.ListForEntity(ctx, models.EntityKindPolitician, row.ID)
	if err != nil {
		return nil, err
	}
	detail.Tags = tags

	if err := r.db.SelectContext(ctx, &detail.CareerEntries, `
		SELECT id, politician_id, title, organization, start_year, end_year, description
		FROM career_entries WHERE politician_id = $1 ORDER BY id
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load career entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get politician")
	}

	var decls []models.AssetDeclaration
	if err := r.db.SelectContext(ctx, &decls, `
		SELECT id, politician_id, year, description, value, currency
		FROM asset_declarations WHERE politician_id = $1 ORDER BY id
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load asset declarations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get politician")
	}
	for _, decl := range decls {
		d := models.AssetDeclarationDetail{AssetDeclaration: decl, SourceURLs: []models.SourceURL{}}
		if err := r.db.SelectContext(ctx, &d.SourceURLs, `
			SELECT id, asset_declaration_id AS parent_id, url, title
			FROM asset_declaration_sources WHERE asset_declaration_id = $1 ORDER BY id
		`, decl.ID); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"asset_declaration_id": decl.ID}).Error("Failed to load asset declaration sources")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get politician")
		}
		detail.AssetDeclarations = append(detail.AssetDeclarations, d)
	}

	if err := r.db.SelectContext(ctx, &detail.CriminalRecords, `
		SELECT id, politician_id, case_number, court, summary, status, year
		FROM criminal_records WHERE politician_id = $1 ORDER BY id
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load criminal records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get politician")
	}

	if err := r.db.SelectContext(ctx, &detail.SocialMediaLinks, `
		SELECT id, politician_id, platform, url
		FROM social_media_links WHERE politician_id = $1 ORDER BY id
	`, row.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to load social media links")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get politician")
	}

	return detail, nil
}

// List returns a page of politicians with tags and party names attached.
// tag filters to politicians carrying the named tag (case-insensitive exact match).
func (r *Repository) List(ctx context.Context, search, tag string, partyID *int64, page, pageSize int) (*models.PoliticianListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "politician.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(DISTINCT p.id)")
	countSb.From("politicians p")
	countWhere := r.listWhere(countSb, search, tag, partyID)
	if len(countWhere) > 0 {
		countSb.Where(countWhere...)
	}
	if partyID != nil {
		countSb.Join("party_memberships pm", "pm.politician_id = p.id AND pm.is_active = true")
	}
	if tag != "" {
		countSb.Join("entity_tags et", "et.entity_type = 'politician' AND et.entity_id = p.id")
		countSb.Join("tags t", "t.id = et.tag_id")
	}

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"search": search, "party_id": partyID}).Error("Failed to count politicians")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list politicians")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("p.id", "p.first_name", "p.last_name", "p.bio", "p.image_url", "p.website_url", "p.date_of_birth", "p.constituency", "p.current_position", "p.created_at", "p.updated_at")
	sb.From("politicians p")
	if partyID != nil {
		sb.Join("party_memberships pm", "pm.politician_id = p.id AND pm.is_active = true")
	}
	if tag != "" {
		sb.Join("entity_tags et", "et.entity_type = 'politician' AND et.entity_id = p.id")
		sb.Join("tags t", "t.id = et.tag_id")
	}
	where := r.listWhere(sb, search, tag, partyID)
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("p.last_name", "p.first_name")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rows []models.Politician
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"search": search, "party_id": partyID, "page": page}).Error("Failed to list politicians")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list politicians")
	}

	items := make([]models.PoliticianDetail, 0, len(rows))
	for _, row := range rows {
		detail, err := r.detail(ctx, row)
		if err != nil {
			return nil, err
		}
		items = append(items, *detail)
	}

	return &models.PoliticianListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (r *Repository) listWhere(sb *sqlbuilder.SelectBuilder, search, tag string, partyID *int64) []string {
	where := []string{}
	if search != "" {
		like := "%" + search + "%"
		where = append(where, sb.Or(
			sb.ILike("p.first_name", like),
			sb.ILike("p.last_name", like),
			sb.ILike("p.constituency", like),
		))
	}
	if tag != "" {
		where = append(where, sb.ILike("t.name", tag))
	}
	if partyID != nil {
		where = append(where, sb.Equal("pm.party_id", *partyID))
	}
	return where
}

// Delete removes a politician and its owned rows.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "politician.Repository.Delete")
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
		`DELETE FROM entity_tags WHERE entity_type = 'politician' AND entity_id = $1`,
		`DELETE FROM party_memberships WHERE politician_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete politician associations")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete politician")
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM politicians WHERE id = $1`, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete politician")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete politician")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "politician %d not found", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete politician")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted politician")
	return nil
}
