package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/diff"
	"github.com/Ramsey-B/aster/pkg/models"
)

var (
	adminIdentity = models.Identity{UserID: "mod-1", Role: "admin"}
	userIdentity  = models.Identity{UserID: "user-1", Role: "user"}
)

type fakeEdits struct {
	nextID        int64
	edits         map[int64]*models.PendingEdit
	transitionErr error
}

func newFakeEdits() *fakeEdits {
	return &fakeEdits{nextID: 1, edits: map[int64]*models.PendingEdit{}}
}

func (f *fakeEdits) Create(ctx context.Context, edit models.PendingEdit) (*models.PendingEdit, error) {
	edit.ID = f.nextID
	f.nextID++
	edit.Status = models.PendingEditStatusPending
	edit.CreatedAt = time.Now().UTC()
	edit.UpdatedAt = edit.CreatedAt
	f.edits[edit.ID] = &edit
	copied := edit
	return &copied, nil
}

func (f *fakeEdits) GetByID(ctx context.Context, id int64) (*models.PendingEdit, error) {
	edit, ok := f.edits[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "pending edit %d not found", id)
	}
	copied := *edit
	return &copied, nil
}

func (f *fakeEdits) List(ctx context.Context, filter models.PendingEditFilter) (*models.PendingEditListResponse, error) {
	items := []models.PendingEdit{}
	for _, edit := range f.edits {
		if filter.Status != "" && edit.Status != filter.Status {
			continue
		}
		items = append(items, *edit)
	}
	return &models.PendingEditListResponse{Items: items, TotalCount: len(items), Page: 1, PageSize: 20}, nil
}

func (f *fakeEdits) UpdateData(ctx context.Context, id int64, data []byte) (*models.PendingEdit, error) {
	edit, ok := f.edits[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "pending edit %d not found", id)
	}
	if edit.Status != models.PendingEditStatusPending {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "pending edit %d is not pending", id)
	}
	edit.ProposedData = data
	copied := *edit
	return &copied, nil
}

func (f *fakeEdits) Transition(ctx context.Context, id int64, from, to, moderatorID string, reason *string, entityID *int64) (bool, error) {
	if f.transitionErr != nil {
		return false, f.transitionErr
	}
	edit, ok := f.edits[id]
	if !ok || edit.Status != from {
		return false, nil
	}
	edit.Status = to
	edit.ModeratorID = &moderatorID
	edit.DeniedReason = reason
	if entityID != nil {
		edit.EntityID = entityID
	}
	return true, nil
}

type fakeWriter struct {
	kind        models.EntityKind
	nextID      int64
	entities    map[int64]map[string]any
	createCalls int
	updateCalls int
	writeErr    error
}

func newFakeWriter(kind models.EntityKind) *fakeWriter {
	return &fakeWriter{kind: kind, nextID: 100, entities: map[int64]map[string]any{}}
}

func (f *fakeWriter) Kind() models.EntityKind { return f.kind }

func (f *fakeWriter) Validate(data json.RawMessage) error {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}
	if name, _ := payload["firstName"].(string); name == "" {
		herr := httperror.NewHTTPError(http.StatusUnprocessableEntity, "validation failed")
		return herr.AddMetaValue("fields", map[string]string{"firstName": "is required"})
	}
	return nil
}

func (f *fakeWriter) Create(ctx context.Context, data json.RawMessage) (any, int64, error) {
	if f.writeErr != nil {
		return nil, 0, f.writeErr
	}
	f.createCalls++
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, 0, err
	}
	id := f.nextID
	f.nextID++
	payload["id"] = float64(id)
	f.entities[id] = payload
	return payload, id, nil
}

func (f *fakeWriter) Update(ctx context.Context, entityID int64, data json.RawMessage) (any, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.updateCalls++
	if _, ok := f.entities[entityID]; !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "%s %d not found", f.kind, entityID)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	payload["id"] = float64(entityID)
	f.entities[entityID] = payload
	return payload, nil
}

func (f *fakeWriter) Snapshot(ctx context.Context, entityID int64) (map[string]any, error) {
	entity, ok := f.entities[entityID]
	if !ok {
		return nil, nil
	}
	copied := map[string]any{}
	for k, v := range entity {
		copied[k] = v
	}
	return copied, nil
}

type fakeEmitter struct {
	events []string
}

func (f *fakeEmitter) EntityChanged(ctx context.Context, eventType string, kind models.EntityKind, entityID int64, actorID, source string) {
	f.events = append(f.events, fmt.Sprintf("%s:%s:%d:%s", eventType, kind, entityID, source))
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestEngine() (*Engine, *fakeEdits, *fakeWriter, *fakeEmitter) {
	edits := newFakeEdits()
	writer := newFakeWriter(models.EntityKindPolitician)
	emitter := &fakeEmitter{}
	engine := NewEngine(edits, []EntityWriter{writer}, emitter, testLogger())
	return engine, edits, writer, emitter
}

func submitNewItem(t *testing.T, engine *Engine, payload string) *models.PendingEdit {
	t.Helper()
	edit, err := engine.Submit(context.Background(), userIdentity, models.SubmitPendingEditRequest{
		EntityType:          "politician",
		SuggestedData:       json.RawMessage(payload),
		IsNewItemSuggestion: true,
	})
	require.NoError(t, err)
	return edit
}

func TestSubmit(t *testing.T) {
	t.Run("should reject anonymous submitters", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		_, err := engine.Submit(context.Background(), models.Identity{}, models.SubmitPendingEditRequest{})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))
	})

	t.Run("should record a new item suggestion as pending with no entity id", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane", "lastName": "Rivera"}`)

		assert.Equal(t, models.PendingEditStatusPending, edit.Status)
		assert.Nil(t, edit.EntityID)
		assert.Equal(t, "user-1", edit.SubmitterID)
	})

	t.Run("should reject a new item suggestion that carries an entity id", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		entityID := "5"
		_, err := engine.Submit(context.Background(), userIdentity, models.SubmitPendingEditRequest{
			EntityType:          "politician",
			EntityID:            &entityID,
			SuggestedData:       json.RawMessage(`{"firstName": "Jane"}`),
			IsNewItemSuggestion: true,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	})

	t.Run("should reject an edit suggestion without an entity id", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		_, err := engine.Submit(context.Background(), userIdentity, models.SubmitPendingEditRequest{
			EntityType:    "politician",
			SuggestedData: json.RawMessage(`{"firstName": "Jane"}`),
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	})

	t.Run("should reject unknown entity types", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		_, err := engine.Submit(context.Background(), userIdentity, models.SubmitPendingEditRequest{
			EntityType:          "committee",
			SuggestedData:       json.RawMessage(`{"firstName": "Jane"}`),
			IsNewItemSuggestion: true,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	})

	t.Run("should return 404 when the target entity does not exist", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		entityID := "999"
		_, err := engine.Submit(context.Background(), userIdentity, models.SubmitPendingEditRequest{
			EntityType:    "politician",
			EntityID:      &entityID,
			SuggestedData: json.RawMessage(`{"firstName": "Jane"}`),
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("should reject payloads that fail the entity schema", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		_, err := engine.Submit(context.Background(), userIdentity, models.SubmitPendingEditRequest{
			EntityType:          "politician",
			SuggestedData:       json.RawMessage(`{"lastName": "Rivera"}`),
			IsNewItemSuggestion: true,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	})

	t.Run("should normalize tag shapes before storing", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane", "tags": [{"id": 1, "name": "health"}, "budget"]}`)

		var stored map[string]any
		require.NoError(t, json.Unmarshal(edit.ProposedData, &stored))
		assert.Equal(t, "health, budget", stored["tags"])
	})
}

func TestApprove(t *testing.T) {
	t.Run("should create the entity and backfill the proposal entity id", func(t *testing.T) {
		engine, edits, writer, emitter := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane", "lastName": "Rivera"}`)

		resp, err := engine.Approve(context.Background(), adminIdentity, edit.ID)
		require.NoError(t, err)

		assert.Equal(t, "Proposal approved", resp.Message)
		assert.Equal(t, 1, writer.createCalls)
		require.NotNil(t, resp.PendingEdit.EntityID)
		assert.Equal(t, int64(100), *resp.PendingEdit.EntityID)
		assert.Equal(t, models.PendingEditStatusApproved, resp.PendingEdit.Status)

		stored, _ := edits.GetByID(context.Background(), edit.ID)
		assert.Equal(t, models.PendingEditStatusApproved, stored.Status)
		require.NotNil(t, stored.ModeratorID)
		assert.Equal(t, "mod-1", *stored.ModeratorID)

		require.Len(t, emitter.events, 1)
		assert.Equal(t, "entity.created:politician:100:moderation", emitter.events[0])
	})

	t.Run("should update the existing entity for edit proposals", func(t *testing.T) {
		engine, _, writer, emitter := newTestEngine()
		writer.entities[7] = map[string]any{"id": float64(7), "firstName": "Jan"}

		entityID := "7"
		edit, err := engine.Submit(context.Background(), userIdentity, models.SubmitPendingEditRequest{
			EntityType:    "politician",
			EntityID:      &entityID,
			SuggestedData: json.RawMessage(`{"firstName": "Jane"}`),
		})
		require.NoError(t, err)

		resp, err := engine.Approve(context.Background(), adminIdentity, edit.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, writer.updateCalls)
		assert.Equal(t, 0, writer.createCalls)
		assert.Equal(t, "Jane", writer.entities[7]["firstName"])
		require.Len(t, emitter.events, 1)
		assert.Equal(t, "entity.updated:politician:7:moderation", emitter.events[0])
		assert.Equal(t, models.PendingEditStatusApproved, resp.PendingEdit.Status)
	})

	t.Run("should return 409 and skip the writer for terminal proposals", func(t *testing.T) {
		engine, _, writer, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)

		_, err := engine.Approve(context.Background(), adminIdentity, edit.ID)
		require.NoError(t, err)

		_, err = engine.Approve(context.Background(), adminIdentity, edit.ID)
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
		assert.Equal(t, 1, writer.createCalls)
	})

	t.Run("should report partial success when the status flip fails after the write", func(t *testing.T) {
		engine, edits, writer, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)
		edits.transitionErr = fmt.Errorf("connection reset")

		_, err := engine.Approve(context.Background(), adminIdentity, edit.ID)
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(err))
		assert.Equal(t, 1, writer.createCalls)

		herr := httperror.ToHTTPError(err)
		assert.Equal(t, true, herr.Meta["partial_success"])
		assert.Equal(t, edit.ID, herr.Meta["pending_edit_id"])
	})

	t.Run("should require an admin", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)

		_, err := engine.Approve(context.Background(), userIdentity, edit.ID)
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))

		_, err = engine.Approve(context.Background(), models.Identity{}, edit.ID)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))
	})
}

func TestDeny(t *testing.T) {
	t.Run("should mark the proposal denied without touching the entity store", func(t *testing.T) {
		engine, _, writer, emitter := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)

		resp, err := engine.Deny(context.Background(), adminIdentity, edit.ID, "duplicate submission")
		require.NoError(t, err)

		assert.Equal(t, "Proposal denied", resp.Message)
		assert.Equal(t, models.PendingEditStatusDenied, resp.PendingEdit.Status)
		require.NotNil(t, resp.PendingEdit.DeniedReason)
		assert.Equal(t, "duplicate submission", *resp.PendingEdit.DeniedReason)
		assert.Equal(t, 0, writer.createCalls)
		assert.Equal(t, 0, writer.updateCalls)
		assert.Empty(t, emitter.events)
	})

	t.Run("should return 409 for terminal proposals", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)

		_, err := engine.Deny(context.Background(), adminIdentity, edit.ID, "")
		require.NoError(t, err)

		_, err = engine.Deny(context.Background(), adminIdentity, edit.ID, "")
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})
}

func TestProcess(t *testing.T) {
	t.Run("should require updatedSuggestedData for update_data only", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)

		_, err := engine.Process(context.Background(), adminIdentity, models.ProcessPendingEditRequest{
			PendingEditID: fmt.Sprintf("%d", edit.ID),
			Action:        models.ModerationActionUpdateData,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

		_, err = engine.Process(context.Background(), adminIdentity, models.ProcessPendingEditRequest{
			PendingEditID:        fmt.Sprintf("%d", edit.ID),
			Action:               models.ModerationActionDeny,
			UpdatedSuggestedData: json.RawMessage(`{"firstName": "Janet"}`),
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("should reject non numeric proposal ids", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		_, err := engine.Process(context.Background(), adminIdentity, models.ProcessPendingEditRequest{
			PendingEditID: "abc",
			Action:        models.ModerationActionApprove,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	})

	t.Run("should dispatch approve end to end", func(t *testing.T) {
		engine, _, writer, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)

		resp, err := engine.Process(context.Background(), adminIdentity, models.ProcessPendingEditRequest{
			PendingEditID: fmt.Sprintf("%d", edit.ID),
			Action:        models.ModerationActionApprove,
		})
		require.NoError(t, err)
		assert.Equal(t, "Proposal approved", resp.Message)
		assert.Equal(t, 1, writer.createCalls)
	})

	t.Run("should block non admins", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		_, err := engine.Process(context.Background(), userIdentity, models.ProcessPendingEditRequest{
			PendingEditID: "1",
			Action:        models.ModerationActionApprove,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
	})
}

func TestUpdateData(t *testing.T) {
	t.Run("should rewrite the proposal payload with normalization", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)

		resp, err := engine.UpdateData(context.Background(), adminIdentity, edit.ID, json.RawMessage(`{"firstName": "Janet", "tags": ["health", "health", "budget"]}`))
		require.NoError(t, err)

		var stored map[string]any
		require.NoError(t, json.Unmarshal(resp.PendingEdit.ProposedData, &stored))
		assert.Equal(t, "Janet", stored["firstName"])
		assert.Equal(t, "health, budget", stored["tags"])
	})

	t.Run("should reject payloads that fail the entity schema", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)

		_, err := engine.UpdateData(context.Background(), adminIdentity, edit.ID, json.RawMessage(`{"lastName": "Rivera"}`))
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	})

	t.Run("should return 409 for terminal proposals", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane"}`)
		_, err := engine.Deny(context.Background(), adminIdentity, edit.ID, "")
		require.NoError(t, err)

		_, err = engine.UpdateData(context.Background(), adminIdentity, edit.ID, json.RawMessage(`{"firstName": "Janet"}`))
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})
}

func TestDiff(t *testing.T) {
	t.Run("should mark everything New for new item proposals", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		edit := submitNewItem(t, engine, `{"firstName": "Jane", "lastName": "Rivera"}`)

		changes, err := engine.Diff(context.Background(), adminIdentity, edit.ID)
		require.NoError(t, err)

		require.Len(t, changes, 2)
		for _, change := range changes {
			assert.Equal(t, diff.CategoryNew, change.Category)
			assert.False(t, change.OriginalPresent)
		}
	})

	t.Run("should diff against the live entity snapshot for edits", func(t *testing.T) {
		engine, _, writer, _ := newTestEngine()
		writer.entities[7] = map[string]any{
			"id":        float64(7),
			"firstName": "Jan",
			"bio":       "Original bio",
			"updatedAt": "2020-01-01T00:00:00Z",
			"tags":      []any{map[string]any{"id": float64(1), "name": "health"}},
		}

		entityID := "7"
		edit, err := engine.Submit(context.Background(), userIdentity, models.SubmitPendingEditRequest{
			EntityType:    "politician",
			EntityID:      &entityID,
			SuggestedData: json.RawMessage(`{"firstName": "Jan", "bio": "New bio", "tags": "health", "updatedAt": "2026-01-01T00:00:00Z"}`),
		})
		require.NoError(t, err)

		changes, err := engine.Diff(context.Background(), adminIdentity, edit.ID)
		require.NoError(t, err)

		// firstName unchanged, tags normalize to the same csv, updatedAt is
		// denylisted; only bio remains.
		require.Len(t, changes, 1)
		assert.Equal(t, "bio", changes[0].Key)
		assert.Equal(t, diff.CategoryUpdated, changes[0].Category)
		assert.Equal(t, "New bio", changes[0].DisplayProposed)
		assert.Equal(t, "Original bio", changes[0].DisplayOriginal)
	})

	t.Run("should require an admin", func(t *testing.T) {
		engine, _, _, _ := newTestEngine()
		_, err := engine.Diff(context.Background(), userIdentity, 1)
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
	})
}
