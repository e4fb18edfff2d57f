package handler

import (
	"net/http"
	"strconv"

	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 商品・バナー・カルーセルの公開API
type ProductHandler struct {
	uc      *usecase.ProductUsecase
	catalog *usecase.CatalogUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, catalog *usecase.CatalogUsecase) *ProductHandler {
	return &ProductHandler{uc: uc, catalog: catalog}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
	e.GET("/products/slug/:slug", h.detailBySlug)
	e.GET("/banners", h.banners)
	e.GET("/carousels", h.carousels)
}

func (h *ProductHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	minPrice, ok := queryInt64Ptr(c, "min_price")
	if !ok {
		return badRequest(c, "invalid min_price")
	}
	maxPrice, ok := queryInt64Ptr(c, "max_price")
	if !ok {
		return badRequest(c, "invalid max_price")
	}

	var topPicks *bool
	if v := c.QueryParam("top_picks"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid top_picks")
		}
		topPicks = &b
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		TopPicks: topPicks,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) detailBySlug(c echo.Context) error {
	p, err := h.uc.GetProductBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) banners(c echo.Context) error {
	out, err := h.catalog.ListBanners(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) carousels(c echo.Context) error {
	out, err := h.catalog.ListCarousels(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
