package moderation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/aster/internal/repositories/bill"
	"github.com/Ramsey-B/aster/internal/repositories/party"
	"github.com/Ramsey-B/aster/internal/repositories/politician"
	"github.com/Ramsey-B/aster/internal/repositories/promise"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/utils"
)

// EntityWriter applies a proposal payload to the store for one entity kind.
// Each implementation validates the payload against the same form schema the
// direct-edit endpoints use, then delegates to the kind's repository, which
// runs the whole write in one transaction.
type EntityWriter interface {
	Kind() models.EntityKind
	Validate(data json.RawMessage) error
	Create(ctx context.Context, data json.RawMessage) (entity any, entityID int64, err error)
	Update(ctx context.Context, entityID int64, data json.RawMessage) (entity any, err error)
	// Snapshot returns the entity's wire shape as a generic map for diffing,
	// or nil when the entity does not exist.
	Snapshot(ctx context.Context, entityID int64) (map[string]any, error)
}

// NormalizeProposedData coerces loosely-shaped proposal fields into the form
// schema. Tags arrive as CSV, name arrays, or tag objects depending on the
// submitting client; everything downstream expects CSV.
func NormalizeProposedData(data json.RawMessage) (json.RawMessage, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "proposed data must be a JSON object")
	}
	if len(payload) == 0 {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "proposed data must not be empty")
	}

	if tags, ok := payload["tags"]; ok {
		payload["tags"] = models.NormalizeTagsValue(tags)
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, httperror.WrapError(http.StatusInternalServerError, err)
	}
	return normalized, nil
}

// snapshot converts an entity detail into its camelCase wire map. Diffing
// works on the same shape clients see.
func snapshot(entity any) (map[string]any, error) {
	b, err := json.Marshal(entity)
	if err != nil {
		return nil, httperror.WrapError(http.StatusInternalServerError, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, httperror.WrapError(http.StatusInternalServerError, err)
	}
	return m, nil
}

// notFound reports whether an error is a 404 from a repository.
func notFound(err error) bool {
	return err != nil && httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound
}

type politicianWriter struct {
	repo *politician.Repository
}

func NewPoliticianWriter(repo *politician.Repository) EntityWriter {
	return &politicianWriter{repo: repo}
}

func (w *politicianWriter) Kind() models.EntityKind { return models.EntityKindPolitician }

func (w *politicianWriter) Validate(data json.RawMessage) error {
	_, err := utils.ValidateArguments[models.PoliticianForm](data)
	return err
}

func (w *politicianWriter) Create(ctx context.Context, data json.RawMessage) (any, int64, error) {
	form, err := utils.ValidateArguments[models.PoliticianForm](data)
	if err != nil {
		return nil, 0, err
	}
	detail, err := w.repo.Create(ctx, form)
	if err != nil {
		return nil, 0, err
	}
	return detail, detail.ID, nil
}

func (w *politicianWriter) Update(ctx context.Context, entityID int64, data json.RawMessage) (any, error) {
	form, err := utils.ValidateArguments[models.PoliticianForm](data)
	if err != nil {
		return nil, err
	}
	return w.repo.Update(ctx, entityID, form)
}

func (w *politicianWriter) Snapshot(ctx context.Context, entityID int64) (map[string]any, error) {
	detail, err := w.repo.GetByID(ctx, entityID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot(detail)
}

type partyWriter struct {
	repo *party.Repository
}

func NewPartyWriter(repo *party.Repository) EntityWriter {
	return &partyWriter{repo: repo}
}

func (w *partyWriter) Kind() models.EntityKind { return models.EntityKindParty }

func (w *partyWriter) Validate(data json.RawMessage) error {
	_, err := utils.ValidateArguments[models.PartyForm](data)
	return err
}

func (w *partyWriter) Create(ctx context.Context, data json.RawMessage) (any, int64, error) {
	form, err := utils.ValidateArguments[models.PartyForm](data)
	if err != nil {
		return nil, 0, err
	}
	detail, err := w.repo.Create(ctx, form)
	if err != nil {
		return nil, 0, err
	}
	return detail, detail.ID, nil
}

func (w *partyWriter) Update(ctx context.Context, entityID int64, data json.RawMessage) (any, error) {
	form, err := utils.ValidateArguments[models.PartyForm](data)
	if err != nil {
		return nil, err
	}
	return w.repo.Update(ctx, entityID, form)
}

func (w *partyWriter) Snapshot(ctx context.Context, entityID int64) (map[string]any, error) {
	detail, err := w.repo.GetByID(ctx, entityID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot(detail)
}

type promiseWriter struct {
	repo *promise.Repository
}

func NewPromiseWriter(repo *promise.Repository) EntityWriter {
	return &promiseWriter{repo: repo}
}

func (w *promiseWriter) Kind() models.EntityKind { return models.EntityKindPromise }

func (w *promiseWriter) Validate(data json.RawMessage) error {
	_, err := utils.ValidateArguments[models.PromiseForm](data)
	return err
}

func (w *promiseWriter) Create(ctx context.Context, data json.RawMessage) (any, int64, error) {
	form, err := utils.ValidateArguments[models.PromiseForm](data)
	if err != nil {
		return nil, 0, err
	}
	detail, err := w.repo.Create(ctx, form)
	if err != nil {
		return nil, 0, err
	}
	return detail, detail.ID, nil
}

func (w *promiseWriter) Update(ctx context.Context, entityID int64, data json.RawMessage) (any, error) {
	form, err := utils.ValidateArguments[models.PromiseForm](data)
	if err != nil {
		return nil, err
	}
	return w.repo.Update(ctx, entityID, form)
}

func (w *promiseWriter) Snapshot(ctx context.Context, entityID int64) (map[string]any, error) {
	detail, err := w.repo.GetByID(ctx, entityID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot(detail)
}

type billWriter struct {
	repo *bill.Repository
}

func NewBillWriter(repo *bill.Repository) EntityWriter {
	return &billWriter{repo: repo}
}

func (w *billWriter) Kind() models.EntityKind { return models.EntityKindBill }

func (w *billWriter) Validate(data json.RawMessage) error {
	_, err := utils.ValidateArguments[models.BillForm](data)
	return err
}

func (w *billWriter) Create(ctx context.Context, data json.RawMessage) (any, int64, error) {
	form, err := utils.ValidateArguments[models.BillForm](data)
	if err != nil {
		return nil, 0, err
	}
	detail, err := w.repo.Create(ctx, form)
	if err != nil {
		return nil, 0, err
	}
	return detail, detail.ID, nil
}

func (w *billWriter) Update(ctx context.Context, entityID int64, data json.RawMessage) (any, error) {
	form, err := utils.ValidateArguments[models.BillForm](data)
	if err != nil {
		return nil, err
	}
	return w.repo.Update(ctx, entityID, form)
}

func (w *billWriter) Snapshot(ctx context.Context, entityID int64) (map[string]any, error) {
	detail, err := w.repo.GetByID(ctx, entityID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot(detail)
}
