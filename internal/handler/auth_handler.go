package handler

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/middleware"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/labstack/echo/v4"
)

const refreshCookieName = "refresh_token"

type AuthHandler struct {
	uc           *usecase.AuthUsecase
	refreshTTL   time.Duration // refresh/csrf cookie の有効期限
	cookieSecure bool
}

// DI
func NewAuthHandler(uc *usecase.AuthUsecase, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		uc:           uc,
		refreshTTL:   cfg.RefreshTokenTTL,
		cookieSecure: cfg.CookieSecure,
	}
}

type SendOTPRequest struct {
	Mobile string `json:"mobile" validate:"required,mobile"`
}

type VerifyOTPRequest struct {
	Mobile string `json:"mobile" validate:"required,mobile"`
	OTP    string `json:"otp" validate:"required,otp"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")

	g.POST("/send-otp", h.sendOTP)
	g.POST("/verify-otp", h.verifyOTP)
	g.POST("/refresh", h.refresh, middleware.CSRFDoubleSubmit())
	g.POST("/logout", h.logout, middleware.CSRFDoubleSubmit())
}

func (h *AuthHandler) sendOTP(c echo.Context) error {
	var req SendOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.SendOTP(c.Request().Context(), req.Mobile)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// OTPでログイン。refreshはHttpOnly cookie、csrfはJSから読めるcookie
func (h *AuthHandler) verifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.VerifyOTP(c.Request().Context(), usecase.VerifyOTPInput{
		Mobile:    req.Mobile,
		OTP:       req.OTP,
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return writeError(c, err)
	}

	if err := h.setSessionCookies(c, out.RefreshTokenPlain); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out.Body)
}

func (h *AuthHandler) refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return unauthorized(c)
	}

	out, err := h.uc.Refresh(c.Request().Context(), cookie.Value, c.Request().UserAgent())
	if err != nil {
		// 失効済みのcookieは消しておく
		h.clearSessionCookies(c)
		return writeError(c, err)
	}

	if err := h.setSessionCookies(c, out.RefreshTokenPlain); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out.Body)
}

func (h *AuthHandler) logout(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return unauthorized(c)
	}

	out, err := h.uc.Logout(c.Request().Context(), cookie.Value)
	h.clearSessionCookies(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) setSessionCookies(c echo.Context, plainRefresh string) error {
	csrfToken, err := generateSecureToken(32)
	if err != nil {
		return err
	}

	exp := time.Now().Add(h.refreshTTL)
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plainRefresh,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	c.SetCookie(&http.Cookie{
		Name:     middleware.CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	return nil
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	for _, ck := range []struct{ name, path string }{
		{refreshCookieName, "/auth"},
		{middleware.CSRFCookieName, "/"},
	} {
		c.SetCookie(&http.Cookie{
			Name:     ck.name,
			Value:    "",
			Path:     ck.path,
			HttpOnly: ck.name == refreshCookieName,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// ランダム文字列を作る。
func generateSecureToken(bytesLen int) (string, error) {
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
