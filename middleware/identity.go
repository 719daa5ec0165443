package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// The platform's auth layer sits in front of this service and forwards
// the verified user id. Access control itself (row scoping, shared
// case visibility) is enforced by the backend, not re-implemented here.
const (
	UserIDHeader     = "X-User-ID"
	userIDContextKey = "userID"
)

// RequireUser rejects requests without a platform-verified identity
// and exposes the user id to handlers.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get(UserIDHeader)
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}
			c.Set(userIDContextKey, userID)
			return next(c)
		}
	}
}

// GetCurrentUserID returns the authenticated user id for the request.
func GetCurrentUserID(c echo.Context) string {
	if id, ok := c.Get(userIDContextKey).(string); ok {
		return id
	}
	return ""
}
