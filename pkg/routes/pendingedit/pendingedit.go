package pendingedit

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	astercontext "github.com/Ramsey-B/aster/pkg/context"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/moderation"
	"github.com/Ramsey-B/aster/pkg/tracing"
	"github.com/Ramsey-B/aster/pkg/utils"
)

// Handler serves the moderation queue endpoints.
type Handler struct {
	engine *moderation.Engine
	logger ectologger.Logger
}

// NewHandler creates a new pending edit handler
func NewHandler(engine *moderation.Engine, logger ectologger.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers pending edit routes. submitMiddleware is applied
// to the submission endpoint only, so moderator reads are never throttled.
func (h *Handler) RegisterRoutes(g *echo.Group, submitMiddleware ...echo.MiddlewareFunc) {
	g.POST("", h.Submit, submitMiddleware...)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/diff", h.Diff)
	g.PUT("", h.Process)
}

func identity(c echo.Context) models.Identity {
	ctx := c.Request().Context()
	return models.Identity{
		UserID: astercontext.GetUserID(ctx),
		Role:   astercontext.GetUserRole(ctx),
	}
}

// Submit accepts a new suggested edit from any authenticated user.
func (h *Handler) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pending_edit_handler.Submit")
	defer span.End()

	req, err := utils.BindRequest[models.SubmitPendingEditRequest](c)
	if err != nil {
		return err
	}

	edit, err := h.engine.Submit(ctx, identity(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, edit)
}

// List returns pending edits for moderators, newest first.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pending_edit_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	filter := models.PendingEditFilter{
		Status:     c.QueryParam("status"),
		EntityType: c.QueryParam("entity_type"),
		Page:       page,
		PageSize:   pageSize,
	}

	result, err := h.engine.List(ctx, identity(c), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Get returns a single pending edit by id.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pending_edit_handler.Get")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be numeric")
	}

	edit, err := h.engine.Get(ctx, identity(c), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, edit)
}

// Diff renders the field-level changes a pending edit would apply.
func (h *Handler) Diff(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pending_edit_handler.Diff")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be numeric")
	}

	changes, err := h.engine.Diff(ctx, identity(c), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"pendingEditId": strconv.FormatInt(id, 10),
		"changes":       changes,
	})
}

// Process applies a moderator decision (approve, deny, or update_data).
func (h *Handler) Process(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pending_edit_handler.Process")
	defer span.End()

	req, err := utils.BindRequest[models.ProcessPendingEditRequest](c)
	if err != nil {
		return err
	}

	resp, err := h.engine.Process(ctx, identity(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}
