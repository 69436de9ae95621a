// middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequireRole lets the request through when the session holds one of the allowed roles.
func RequireRole(logger *zap.Logger, allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := SessionFrom(c)
			if session == nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Authentication failed: no session",
				})
			}

			for _, role := range allowed {
				if session.Role == role {
					return next(c)
				}
			}

			logger.Warn("access denied",
				zap.String("operator_id", session.OperatorID),
				zap.String("role", session.Role),
				zap.String("path", c.Request().URL.Path))
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Access denied for your role",
			})
		}
	}
}
