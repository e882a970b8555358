package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/diff"
	"github.com/Ramsey-B/aster/pkg/events"
	"github.com/Ramsey-B/aster/pkg/metrics"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
	"github.com/Ramsey-B/aster/pkg/utils"
)

// PendingEdits is the proposal persistence surface the engine drives.
type PendingEdits interface {
	Create(ctx context.Context, edit models.PendingEdit) (*models.PendingEdit, error)
	GetByID(ctx context.Context, id int64) (*models.PendingEdit, error)
	List(ctx context.Context, filter models.PendingEditFilter) (*models.PendingEditListResponse, error)
	UpdateData(ctx context.Context, id int64, data []byte) (*models.PendingEdit, error)
	Transition(ctx context.Context, id int64, from, to, moderatorID string, reason *string, entityID *int64) (bool, error)
}

// Engine runs the moderation workflow: public submissions in, admin decisions
// out. Every operation takes the caller's identity explicitly.
type Engine struct {
	edits   PendingEdits
	writers map[models.EntityKind]EntityWriter
	emitter events.Emitter
	logger  ectologger.Logger
}

func NewEngine(edits PendingEdits, writers []EntityWriter, emitter events.Emitter, logger ectologger.Logger) *Engine {
	byKind := map[models.EntityKind]EntityWriter{}
	for _, w := range writers {
		byKind[w.Kind()] = w
	}
	return &Engine{
		edits:   edits,
		writers: byKind,
		emitter: emitter,
		logger:  logger,
	}
}

// Submit records a proposal from any authenticated user.
func (e *Engine) Submit(ctx context.Context, identity models.Identity, req models.SubmitPendingEditRequest) (*models.PendingEdit, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.Submit")
	defer span.End()

	if identity.IsAnonymous() {
		return nil, httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if _, err := utils.Validate(req); err != nil {
		return nil, err
	}

	if req.IsNewItemSuggestion && req.EntityID != nil {
		return nil, fieldError("entityId", "must be null for a new item suggestion")
	}
	if !req.IsNewItemSuggestion && req.EntityID == nil {
		return nil, fieldError("entityId", "is required when editing an existing item")
	}

	kind, err := models.ParseEntityKind(req.EntityType)
	if err != nil {
		return nil, fieldError("entityType", "must be one of: politician, party, promise, bill")
	}

	writer, ok := e.writers[kind]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "no writer registered for %s", kind)
	}

	data, err := NormalizeProposedData(req.SuggestedData)
	if err != nil {
		return nil, err
	}
	if err := writer.Validate(data); err != nil {
		return nil, err
	}

	var entityID *int64
	if req.EntityID != nil {
		parsed, err := strconv.ParseInt(*req.EntityID, 10, 64)
		if err != nil {
			return nil, fieldError("entityId", "must be numeric")
		}

		original, err := writer.Snapshot(ctx, parsed)
		if err != nil {
			return nil, err
		}
		if original == nil {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "%s %d not found", kind, parsed)
		}
		entityID = &parsed
	}

	created, err := e.edits.Create(ctx, models.PendingEdit{
		EntityType:   kind,
		EntityID:     entityID,
		ProposedData: data,
		Notes:        req.Notes,
		SubmitterID:  identity.UserID,
	})
	if err != nil {
		return nil, err
	}

	metrics.ProposalsSubmitted.WithLabelValues(string(kind)).Inc()
	e.logger.WithContext(ctx).WithFields(map[string]any{"id": created.ID, "entity_type": kind, "submitter_id": identity.UserID}).Info("Proposal submitted")
	return created, nil
}

// List returns proposals newest-first. Admin only.
func (e *Engine) List(ctx context.Context, identity models.Identity, filter models.PendingEditFilter) (*models.PendingEditListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.List")
	defer span.End()

	if err := requireAdmin(identity); err != nil {
		return nil, err
	}

	return e.edits.List(ctx, filter)
}

// Get loads a single proposal. Admin only.
func (e *Engine) Get(ctx context.Context, identity models.Identity, id int64) (*models.PendingEdit, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.Get")
	defer span.End()

	if err := requireAdmin(identity); err != nil {
		return nil, err
	}

	return e.edits.GetByID(ctx, id)
}

// Process dispatches a moderation decision by action.
func (e *Engine) Process(ctx context.Context, identity models.Identity, req models.ProcessPendingEditRequest) (*models.ProcessPendingEditResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.Process")
	defer span.End()

	if err := requireAdmin(identity); err != nil {
		return nil, err
	}

	if _, err := utils.Validate(req); err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(req.PendingEditID, 10, 64)
	if err != nil {
		return nil, fieldError("pendingEditId", "must be numeric")
	}

	if req.Action == models.ModerationActionUpdateData {
		if len(req.UpdatedSuggestedData) == 0 {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "updatedSuggestedData is required for update_data")
		}
	} else if len(req.UpdatedSuggestedData) > 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "updatedSuggestedData is not allowed for %s", req.Action)
	}

	switch req.Action {
	case models.ModerationActionApprove:
		return e.Approve(ctx, identity, id)
	case models.ModerationActionDeny:
		return e.Deny(ctx, identity, id, req.Reason)
	case models.ModerationActionUpdateData:
		return e.UpdateData(ctx, identity, id, req.UpdatedSuggestedData)
	default:
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown action %q", req.Action)
	}
}

// Approve applies the proposal to the entity store, then moves the proposal to
// approved. The entity write runs in its own transaction; the status flip is
// conditional on the row still being pending, so a concurrent approval loses
// cleanly instead of double-applying.
func (e *Engine) Approve(ctx context.Context, identity models.Identity, id int64) (*models.ProcessPendingEditResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.Approve")
	defer span.End()

	if err := requireAdmin(identity); err != nil {
		return nil, err
	}

	edit, err := e.edits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if edit.IsTerminal() {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "pending edit %d has already been %s", id, edit.Status)
	}

	writer, ok := e.writers[edit.EntityType]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "no writer registered for %s", edit.EntityType)
	}

	data, err := NormalizeProposedData(edit.ProposedData)
	if err != nil {
		return nil, err
	}

	var entity any
	var createdID *int64
	eventType := events.TypeEntityUpdated
	entityID := int64(0)
	if edit.EntityID == nil {
		var newID int64
		entity, newID, err = writer.Create(ctx, data)
		if err != nil {
			return nil, err
		}
		createdID = &newID
		entityID = newID
		eventType = events.TypeEntityCreated
	} else {
		entity, err = writer.Update(ctx, *edit.EntityID, data)
		if err != nil {
			return nil, err
		}
		entityID = *edit.EntityID
	}

	ok, err = e.edits.Transition(ctx, id, models.PendingEditStatusPending, models.PendingEditStatusApproved, identity.UserID, nil, createdID)
	if err != nil || !ok {
		metrics.PartialApprovals.Inc()
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "entity_id": entityID}).Error("Entity write succeeded but proposal transition failed")
		herr := httperror.NewHTTPError(http.StatusInternalServerError, "the entity was updated but the proposal status could not be changed; please confirm the proposal manually")
		herr = herr.AddMetaValue("partial_success", true)
		herr = herr.AddMetaValue("pending_edit_id", id)
		return nil, herr
	}

	updated, err := e.edits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.ProposalsApproved.WithLabelValues(string(edit.EntityType)).Inc()
	e.emitter.EntityChanged(ctx, eventType, edit.EntityType, entityID, identity.UserID, events.SourceModeration)
	e.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "entity_type": edit.EntityType, "entity_id": entityID, "moderator_id": identity.UserID}).Info("Proposal approved")

	return &models.ProcessPendingEditResponse{
		Message:     "Proposal approved",
		PendingEdit: updated,
		Entity:      entity,
	}, nil
}

// Deny marks a proposal denied without touching the target entity.
func (e *Engine) Deny(ctx context.Context, identity models.Identity, id int64, reason string) (*models.ProcessPendingEditResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.Deny")
	defer span.End()

	if err := requireAdmin(identity); err != nil {
		return nil, err
	}

	edit, err := e.edits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if edit.IsTerminal() {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "pending edit %d has already been %s", id, edit.Status)
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	ok, err := e.edits.Transition(ctx, id, models.PendingEditStatusPending, models.PendingEditStatusDenied, identity.UserID, reasonPtr, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "pending edit %d has already been processed", id)
	}

	updated, err := e.edits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.ProposalsDenied.WithLabelValues(string(edit.EntityType)).Inc()
	e.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "moderator_id": identity.UserID}).Info("Proposal denied")

	return &models.ProcessPendingEditResponse{
		Message:     "Proposal denied",
		PendingEdit: updated,
	}, nil
}

// UpdateData rewrites the proposed payload of a still-pending proposal.
func (e *Engine) UpdateData(ctx context.Context, identity models.Identity, id int64, data json.RawMessage) (*models.ProcessPendingEditResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.UpdateData")
	defer span.End()

	if err := requireAdmin(identity); err != nil {
		return nil, err
	}

	edit, err := e.edits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if edit.IsTerminal() {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "pending edit %d has already been %s", id, edit.Status)
	}

	writer, ok := e.writers[edit.EntityType]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "no writer registered for %s", edit.EntityType)
	}

	normalized, err := NormalizeProposedData(data)
	if err != nil {
		return nil, err
	}
	if err := writer.Validate(normalized); err != nil {
		return nil, err
	}

	updated, err := e.edits.UpdateData(ctx, id, normalized)
	if err != nil {
		return nil, err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "moderator_id": identity.UserID}).Info("Proposal data updated")

	return &models.ProcessPendingEditResponse{
		Message:     "Proposal data updated",
		PendingEdit: updated,
	}, nil
}

// Diff renders the reviewable change list for a proposal. Admin only.
func (e *Engine) Diff(ctx context.Context, identity models.Identity, id int64) ([]diff.FieldChange, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.Diff")
	defer span.End()

	if err := requireAdmin(identity); err != nil {
		return nil, err
	}

	edit, err := e.edits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	spec, ok := models.GetKindSpec(edit.EntityType)
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "unknown entity type %s", edit.EntityType)
	}

	var proposed map[string]any
	if err := json.Unmarshal(edit.ProposedData, &proposed); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "stored proposal data is not a JSON object")
	}
	if tags, ok := proposed["tags"]; ok {
		proposed["tags"] = models.NormalizeTagsValue(tags)
	}

	var original map[string]any
	if edit.EntityID != nil {
		writer, ok := e.writers[edit.EntityType]
		if !ok {
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "no writer registered for %s", edit.EntityType)
		}
		original, err = writer.Snapshot(ctx, *edit.EntityID)
		if err != nil {
			return nil, err
		}
		if original != nil {
			if tags, ok := original["tags"]; ok {
				original["tags"] = models.NormalizeTagsValue(tags)
			}
		}
	}

	return diff.Render(spec, proposed, original), nil
}

func requireAdmin(identity models.Identity) error {
	if identity.IsAnonymous() {
		return httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if !identity.IsAdmin() {
		return httperror.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return nil
}

func fieldError(field, message string) error {
	herr := httperror.NewHTTPError(http.StatusUnprocessableEntity, "validation failed")
	herr = herr.AddMetaValue("fields", map[string]string{field: message})
	return herr
}
