package handler

import (
	"net/http"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/middleware"
	"github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/labstack/echo/v4"
)

const maxPincodeFileSize = 5 << 20

type DeliveryHandler struct {
	uc *usecase.DeliveryUsecase
}

func NewDeliveryHandler(uc *usecase.DeliveryUsecase) *DeliveryHandler {
	return &DeliveryHandler{uc: uc}
}

func (h *DeliveryHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/delivery/pincodes/check", h.check)

	e.POST("/admin/delivery/pincodes/upload", h.upload,
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)
}

// ?pincode=XXXXXX
func (h *DeliveryHandler) check(c echo.Context) error {
	out, err := h.uc.Check(c.Request().Context(), c.QueryParam("pincode"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// multipartのfileフィールド（.csv / .xlsx）
func (h *DeliveryHandler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	if fh.Size > maxPincodeFileSize {
		return badRequest(c, "file too large")
	}

	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "could not read file")
	}
	defer f.Close()

	out, err := h.uc.Upload(c.Request().Context(), fh.Filename, f, fh.Size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
