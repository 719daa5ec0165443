package handlers

import (
	"net/http"

	"expedientes_app_go/middleware"
	"expedientes_app_go/models"
	"expedientes_app_go/services"

	"github.com/labstack/echo/v4"
)

// ProductivityHandler exposes the per-user productivity store.
type ProductivityHandler struct {
	Repo     *services.CaseRepository
	Sessions *services.SessionRegistry
}

func NewProductivityHandler(repo *services.CaseRepository, sessions *services.SessionRegistry) *ProductivityHandler {
	return &ProductivityHandler{Repo: repo, Sessions: sessions}
}

func (h *ProductivityHandler) store(c echo.Context) (*services.ProductivityStore, error) {
	return h.Sessions.Productivity(middleware.GetCurrentUserID(c))
}

// GetNextActions returns the user's next-action map keyed by case id.
func (h *ProductivityHandler) GetNextActions(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, store.NextActions())
}

// SetNextAction creates or replaces the action for a case.
func (h *ProductivityHandler) SetNextAction(c echo.Context) error {
	caseID := c.Param("id")
	record, ok := h.Repo.Get(caseID)
	if !ok {
		return writeError(c, &services.NotFoundError{ID: caseID})
	}

	var in services.NextActionInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	// The due date may not precede the case's filing date. Checked
	// before the store applies anything, so a failed update leaves an
	// existing action untouched.
	dueDate, err := services.NormalizeDateOnly(in.DueDate)
	if err != nil {
		return writeError(c, &services.ValidationError{Field: "due_date", Reason: "invalid date format: expected YYYY-MM-DD"})
	}
	if dueDate < record.FilingDate {
		return writeError(c, &services.ValidationError{Field: "due_date", Reason: "cannot precede the case's filing date"})
	}

	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}

	action, err := store.SetNextAction(caseID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, action)
}

// ToggleNextAction flips completion on a case's action.
func (h *ProductivityHandler) ToggleNextAction(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	action, ok := store.ToggleNextActionCompleted(c.Param("id"))
	if !ok {
		return writeError(c, &services.NotFoundError{ID: c.Param("id")})
	}
	return c.JSON(http.StatusOK, action)
}

// DeleteNextAction removes a case's action.
func (h *ProductivityHandler) DeleteNextAction(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	store.RemoveNextAction(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// GetPreferences returns the full preferences aggregate.
func (h *ProductivityHandler) GetPreferences(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, store.Preferences())
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Position    string `json:"position"`
}

// UpdateProfile sets the display name and position.
func (h *ProductivityHandler) UpdateProfile(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	store.UpdateProfile(req.DisplayName, req.Position)
	return c.JSON(http.StatusOK, store.Preferences())
}

type toggleRequest struct {
	Kind    string `json:"kind"` // "notification" or "system"
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// SetToggle flips one preference toggle.
func (h *ProductivityHandler) SetToggle(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	switch req.Kind {
	case "system":
		store.SetSystemToggle(req.Key, req.Enabled)
	default:
		store.SetNotificationToggle(req.Key, req.Enabled)
	}
	return c.JSON(http.StatusOK, store.Preferences())
}

type handlersRequest struct {
	Handlers []string `json:"handlers"`
}

// SetHandlers replaces the handler-name catalog.
func (h *ProductivityHandler) SetHandlers(c echo.Context) error {
	var req handlersRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	store.SetHandlers(req.Handlers)
	return c.JSON(http.StatusOK, store.Preferences())
}

// SaveTemplate upserts a case template.
func (h *ProductivityHandler) SaveTemplate(c echo.Context) error {
	var t models.CaseTemplate
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	saved, err := store.SaveTemplate(t)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

// DeleteTemplate removes a template by id.
func (h *ProductivityHandler) DeleteTemplate(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	store.DeleteTemplate(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// SaveFilter upserts a saved list filter.
func (h *ProductivityHandler) SaveFilter(c echo.Context) error {
	var f models.SavedFilter
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	saved, err := store.SaveFilter(f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

// DeleteFilter removes a saved filter by id.
func (h *ProductivityHandler) DeleteFilter(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	store.DeleteFilter(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

type draftRequest struct {
	Fields map[string]string `json:"fields"`
}

// SaveDraft stores the autosaved form snapshot for a form identity.
// Callers debounce; every call here persists.
func (h *ProductivityHandler) SaveDraft(c echo.Context) error {
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := store.SaveDraft(c.Param("key"), req.Fields); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetDraft returns the stored draft for a form identity.
func (h *ProductivityHandler) GetDraft(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	draft, ok := store.Draft(c.Param("key"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no draft saved"})
	}
	return c.JSON(http.StatusOK, draft)
}

// DeleteDraft discards a draft.
func (h *ProductivityHandler) DeleteDraft(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return writeError(c, err)
	}
	store.ClearDraft(c.Param("key"))
	return c.NoContent(http.StatusNoContent)
}
