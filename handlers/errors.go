package handlers

import (
	"log"
	"net/http"

	"expedientes_app_go/services"

	"github.com/labstack/echo/v4"
)

// writeError maps the service error taxonomy onto HTTP responses.
// Validation and conflict reasons are safe to show verbatim; anything
// else becomes a generic retryable message.
func writeError(c echo.Context, err error) error {
	switch {
	case services.IsValidation(err):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case services.IsConflict(err):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case services.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		log.Printf("[WARNING] Request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "a connection problem occurred, please try again",
		})
	}
}
