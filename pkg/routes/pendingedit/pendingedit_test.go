package pendingedit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/middleware"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/moderation"
)

type memEdits struct {
	nextID int64
	edits  map[int64]*models.PendingEdit
}

func (m *memEdits) Create(ctx context.Context, edit models.PendingEdit) (*models.PendingEdit, error) {
	m.nextID++
	edit.ID = m.nextID
	edit.Status = models.PendingEditStatusPending
	m.edits[edit.ID] = &edit
	copied := edit
	return &copied, nil
}

func (m *memEdits) GetByID(ctx context.Context, id int64) (*models.PendingEdit, error) {
	edit, ok := m.edits[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "pending edit %d not found", id)
	}
	copied := *edit
	return &copied, nil
}

func (m *memEdits) List(ctx context.Context, filter models.PendingEditFilter) (*models.PendingEditListResponse, error) {
	items := []models.PendingEdit{}
	for _, edit := range m.edits {
		items = append(items, *edit)
	}
	return &models.PendingEditListResponse{Items: items, TotalCount: len(items), Page: 1, PageSize: 20}, nil
}

func (m *memEdits) UpdateData(ctx context.Context, id int64, data []byte) (*models.PendingEdit, error) {
	edit, ok := m.edits[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "pending edit %d not found", id)
	}
	edit.ProposedData = data
	copied := *edit
	return &copied, nil
}

func (m *memEdits) Transition(ctx context.Context, id int64, from, to, moderatorID string, reason *string, entityID *int64) (bool, error) {
	edit, ok := m.edits[id]
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

type memWriter struct {
	nextID   int64
	entities map[int64]map[string]any
}

func (w *memWriter) Kind() models.EntityKind { return models.EntityKindParty }

func (w *memWriter) Validate(data json.RawMessage) error {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}
	if name, _ := payload["name"].(string); name == "" {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, "validation failed")
	}
	return nil
}

func (w *memWriter) Create(ctx context.Context, data json.RawMessage) (any, int64, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, 0, err
	}
	w.nextID++
	w.entities[w.nextID] = payload
	return payload, w.nextID, nil
}

func (w *memWriter) Update(ctx context.Context, entityID int64, data json.RawMessage) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	w.entities[entityID] = payload
	return payload, nil
}

func (w *memWriter) Snapshot(ctx context.Context, entityID int64) (map[string]any, error) {
	entity, ok := w.entities[entityID]
	if !ok {
		return nil, nil
	}
	return entity, nil
}

type noopEmitter struct{}

func (noopEmitter) EntityChanged(context.Context, string, models.EntityKind, int64, string, string) {}

func newTestServer() *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	edits := &memEdits{edits: map[int64]*models.PendingEdit{}}
	writer := &memWriter{nextID: 10, entities: map[int64]map[string]any{}}
	engine := moderation.NewEngine(edits, []moderation.EntityWriter{writer}, noopEmitter{}, logger)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.TestAuth())
	NewHandler(engine, logger).RegisterRoutes(e.Group("/api/v1/pending-edits"))
	return e
}

func doRequest(e *echo.Echo, method, path, body, userID, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSubmitEndpoint(t *testing.T) {
	t.Run("should return 401 for anonymous submissions", func(t *testing.T) {
		e := newTestServer()
		rec := doRequest(e, http.MethodPost, "/api/v1/pending-edits", `{"entityType": "party", "isNewItemSuggestion": true, "suggestedData": {"name": "Green Alliance"}}`, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should accept a valid new item suggestion from a user", func(t *testing.T) {
		e := newTestServer()
		rec := doRequest(e, http.MethodPost, "/api/v1/pending-edits", `{"entityType": "party", "isNewItemSuggestion": true, "suggestedData": {"name": "Green Alliance"}, "notes": "from the party website"}`, "user-1", "user")
		require.Equal(t, http.StatusCreated, rec.Code)

		var edit models.PendingEdit
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edit))
		assert.Equal(t, models.PendingEditStatusPending, edit.Status)
		assert.Equal(t, "user-1", edit.SubmitterID)
		assert.Equal(t, "from the party website", edit.Notes)
	})

	t.Run("should return 422 for a missing entity type", func(t *testing.T) {
		e := newTestServer()
		rec := doRequest(e, http.MethodPost, "/api/v1/pending-edits", `{"isNewItemSuggestion": true, "suggestedData": {"name": "Green Alliance"}}`, "user-1", "user")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestListAndGetEndpoints(t *testing.T) {
	t.Run("should block non admins from the queue", func(t *testing.T) {
		e := newTestServer()
		assert.Equal(t, http.StatusForbidden, doRequest(e, http.MethodGet, "/api/v1/pending-edits", "", "user-1", "user").Code)
		assert.Equal(t, http.StatusUnauthorized, doRequest(e, http.MethodGet, "/api/v1/pending-edits", "", "", "").Code)
	})

	t.Run("should list submitted proposals for admins", func(t *testing.T) {
		e := newTestServer()
		doRequest(e, http.MethodPost, "/api/v1/pending-edits", `{"entityType": "party", "isNewItemSuggestion": true, "suggestedData": {"name": "Green Alliance"}}`, "user-1", "user")

		rec := doRequest(e, http.MethodGet, "/api/v1/pending-edits", "", "mod-1", "admin")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.PendingEditListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.TotalCount)
	})

	t.Run("should return 400 for a non numeric id", func(t *testing.T) {
		e := newTestServer()
		rec := doRequest(e, http.MethodGet, "/api/v1/pending-edits/abc", "", "mod-1", "admin")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProcessEndpoint(t *testing.T) {
	t.Run("should approve a proposal and return the written entity", func(t *testing.T) {
		e := newTestServer()
		doRequest(e, http.MethodPost, "/api/v1/pending-edits", `{"entityType": "party", "isNewItemSuggestion": true, "suggestedData": {"name": "Green Alliance"}}`, "user-1", "user")

		rec := doRequest(e, http.MethodPut, "/api/v1/pending-edits", `{"pendingEditId": "1", "action": "approve"}`, "mod-1", "admin")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.ProcessPendingEditResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Proposal approved", resp.Message)
		require.NotNil(t, resp.PendingEdit)
		assert.Equal(t, models.PendingEditStatusApproved, resp.PendingEdit.Status)
		assert.NotNil(t, resp.Entity)
	})

	t.Run("should return 409 when the proposal was already processed", func(t *testing.T) {
		e := newTestServer()
		doRequest(e, http.MethodPost, "/api/v1/pending-edits", `{"entityType": "party", "isNewItemSuggestion": true, "suggestedData": {"name": "Green Alliance"}}`, "user-1", "user")
		doRequest(e, http.MethodPut, "/api/v1/pending-edits", `{"pendingEditId": "1", "action": "deny", "reason": "duplicate"}`, "mod-1", "admin")

		rec := doRequest(e, http.MethodPut, "/api/v1/pending-edits", `{"pendingEditId": "1", "action": "approve"}`, "mod-1", "admin")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("should block non admin moderation attempts", func(t *testing.T) {
		e := newTestServer()
		rec := doRequest(e, http.MethodPut, "/api/v1/pending-edits", `{"pendingEditId": "1", "action": "approve"}`, "user-1", "user")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("should return 422 for an unknown action", func(t *testing.T) {
		e := newTestServer()
		rec := doRequest(e, http.MethodPut, "/api/v1/pending-edits", `{"pendingEditId": "1", "action": "escalate"}`, "mod-1", "admin")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestDiffEndpoint(t *testing.T) {
	t.Run("should render changes for admins", func(t *testing.T) {
		e := newTestServer()
		doRequest(e, http.MethodPost, "/api/v1/pending-edits", `{"entityType": "party", "isNewItemSuggestion": true, "suggestedData": {"name": "Green Alliance", "ideology": "environmentalism"}}`, "user-1", "user")

		rec := doRequest(e, http.MethodGet, "/api/v1/pending-edits/1/diff", "", "mod-1", "admin")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			PendingEditID string `json:"pendingEditId"`
			Changes       []struct {
				Key      string `json:"key"`
				Category string `json:"category"`
			} `json:"changes"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "1", resp.PendingEditID)
		require.Len(t, resp.Changes, 2)
		assert.Equal(t, "New", resp.Changes[0].Category)
	})

	t.Run("should block non admins", func(t *testing.T) {
		e := newTestServer()
		rec := doRequest(e, http.MethodGet, "/api/v1/pending-edits/1/diff", "", "user-1", "user")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
