package handlers

import (
	"net/http"

	"expedientes_app_go/middleware"
	"expedientes_app_go/models"
	"expedientes_app_go/services"

	"github.com/labstack/echo/v4"
)

// NotificationHandler exposes the per-user notification center.
type NotificationHandler struct {
	Sessions *services.SessionRegistry
}

func NewNotificationHandler(sessions *services.SessionRegistry) *NotificationHandler {
	return &NotificationHandler{Sessions: sessions}
}

func (h *NotificationHandler) center(c echo.Context) (*services.NotificationCenter, error) {
	return h.Sessions.Notifications(middleware.GetCurrentUserID(c))
}

// List returns the user's notification log, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	center, err := h.center(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": center.List(),
		"unread":        center.Unread(),
	})
}

type addNotificationRequest struct {
	Kind    string  `json:"kind"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	CaseID  *string `json:"case_id,omitempty"`
}

// Add records an ad-hoc notification.
func (h *NotificationHandler) Add(c echo.Context) error {
	var req addNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title: is required"})
	}
	switch req.Kind {
	case models.NotificationKindSuccess, models.NotificationKindWarning,
		models.NotificationKindInfo, models.NotificationKindError:
	default:
		req.Kind = models.NotificationKindInfo
	}

	center, err := h.center(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, center.Add(req.Kind, req.Title, req.Message, req.CaseID))
}

// MarkRead flags one entry as read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	center, err := h.center(c)
	if err != nil {
		return writeError(c, err)
	}
	if !center.MarkRead(c.Param("id")) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "notification not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead flags every entry as read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	center, err := h.center(c)
	if err != nil {
		return writeError(c, err)
	}
	center.MarkAllRead()
	return c.NoContent(http.StatusNoContent)
}

// Remove deletes one entry.
func (h *NotificationHandler) Remove(c echo.Context) error {
	center, err := h.center(c)
	if err != nil {
		return writeError(c, err)
	}
	if !center.Remove(c.Param("id")) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "notification not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear empties the log.
func (h *NotificationHandler) Clear(c echo.Context) error {
	center, err := h.center(c)
	if err != nil {
		return writeError(c, err)
	}
	center.Clear()
	return c.NoContent(http.StatusNoContent)
}
