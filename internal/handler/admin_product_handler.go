package handler

import (
	"net/http"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/middleware"
	"github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 作成・更新共通。画像はアップロード済みのURL
type ProductRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description"`
	Category    string   `json:"category" validate:"required,max=100"`
	MRP         int64    `json:"mrp" validate:"gte=0"`
	Price       int64    `json:"price" validate:"gte=0"`
	Discount    int      `json:"discount" validate:"gte=0,lte=100"`
	Rating      float64  `json:"rating" validate:"gte=0,lte=5"`
	Images      []string `json:"product_images" validate:"dive,required"`
	TopPicks    bool     `json:"top_picks"`
}

func (r ProductRequest) toInput() usecase.AdminProductInput {
	return usecase.AdminProductInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		MRP:         r.MRP,
		Price:       r.Price,
		Discount:    r.Discount,
		Rating:      r.Rating,
		Images:      r.Images,
		TopPicks:    r.TopPicks,
	}
}

type BannerCreateRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	BannerImage string `json:"banner_image" validate:"required"`
}

type CarouselCreateRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	DesktopImage string `json:"desktop_image" validate:"required"`
	MobileImage  string `json:"mobile_image" validate:"required"`
}

// /admin/products と バナー・カルーセル
type AdminProductHandler struct {
	uc      *usecase.ProductUsecase
	catalog *usecase.CatalogUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase, catalog *usecase.CatalogUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc, catalog: catalog}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.POST("/banners", h.createBanner)
	admin.POST("/carousels", h.createCarousel)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 論理削除
func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) createBanner(c echo.Context) error {
	var req BannerCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.catalog.CreateBanner(c.Request().Context(), req.Name, req.BannerImage)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) createCarousel(c echo.Context) error {
	var req CarouselCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.catalog.CreateCarousel(c.Request().Context(), req.Name, req.DesktopImage, req.MobileImage)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
