package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// Double Submit: cookieのcsrf_tokenとX-CSRF-Tokenヘッダが同じ値か
func CSRFDoubleSubmit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CSRFCookieName)
			header := c.Request().Header.Get(CSRFHeaderName)
			if err != nil || cookie.Value == "" || header == "" ||
				subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "csrf token mismatch", Code: "FORBIDDEN"})
			}
			return next(c)
		}
	}
}
