package middleware

import (
	"net/http"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// contextのroleがADMINかどうか。AuthJWTの後に置く
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return unauthorized(c)
			}

			if model.Role(role) != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "admin only", Code: "FORBIDDEN"})
			}

			return next(c)
		}
	}
}
