package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
	tx          repo.TransactionManager
	log         *zap.Logger
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository, tx repo.TransactionManager, log *zap.Logger) *ProductUsecase {
	return &ProductUsecase{
		productRepo: productRepo,
		tx:          tx,
		log:         log.Named("product"),
	}
}

// 商品レスポンス。割引後価格を付ける
type ProductOutput struct {
	model.Product
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

func toProductOutput(p model.Product) ProductOutput {
	return ProductOutput{Product: p, DiscountedPrice: p.DiscountedPrice()}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	TopPicks *bool
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

type ProductListOutput struct {
	Items []ProductOutput `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "rating":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		Category: strings.TrimSpace(in.Category),
		TopPicks: in.TopPicks,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, errDB()
	}

	outs := make([]ProductOutput, 0, len(items))
	for _, p := range items {
		outs = append(outs, toProductOutput(p))
	}
	return ProductListOutput{
		Items: outs,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductOutput, error) {
	if productID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ProductOutput{}, errDB()
	}
	return toProductOutput(p), nil
}

func (u *ProductUsecase) GetProductBySlug(ctx context.Context, s string) (ProductOutput, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	p, err := u.productRepo.FindBySlug(ctx, s)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ProductOutput{}, errDB()
	}
	return toProductOutput(p), nil
}

type AdminProductInput struct {
	Name        string
	Description string
	Category    string
	MRP         int64
	Price       int64
	Discount    int
	Rating      float64
	Images      []string
	TopPicks    bool
}

func validateProductInput(in AdminProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return NewHTTPError(http.StatusBadRequest, "category required")
	}
	if in.MRP < 0 {
		return NewHTTPError(http.StatusBadRequest, "mrp must be >= 0")
	}
	if in.Price < 0 {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.Price > in.MRP {
		return NewHTTPError(http.StatusBadRequest, "price must be <= mrp")
	}
	if in.Discount < 0 || in.Discount > 100 {
		return NewHTTPError(http.StatusBadRequest, "discount must be between 0 and 100")
	}
	if in.Rating < 0 || in.Rating > 5 {
		return NewHTTPError(http.StatusBadRequest, "rating must be between 0 and 5")
	}
	for _, img := range in.Images {
		if strings.TrimSpace(img) == "" {
			return NewHTTPError(http.StatusBadRequest, "empty image url")
		}
	}
	return nil
}

// 既存slugと被らない候補を返す（base, base-2, base-3 ...）
func nextFreeSlug(base string, taken []string) string {
	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		cand := fmt.Sprintf("%s-%d", base, n)
		if _, ok := used[cand]; !ok {
			return cand
		}
	}
}

const slugRetry = 3

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (ProductOutput, error) {
	if adminUserID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateProductInput(in); err != nil {
		return ProductOutput{}, err
	}

	base := slug.Make(in.Name)
	if base == "" {
		base = "product"
	}

	// 同時作成でslugが衝突したら取り直す
	for attempt := 0; attempt < slugRetry; attempt++ {
		taken, err := u.productRepo.ListSlugsWithPrefix(ctx, base)
		if err != nil {
			return ProductOutput{}, errDB()
		}

		p, err := u.productRepo.Create(ctx, model.Product{
			Name:        strings.TrimSpace(in.Name),
			Slug:        nextFreeSlug(base, taken),
			Description: in.Description,
			Category:    strings.TrimSpace(in.Category),
			MRP:         in.MRP,
			Price:       in.Price,
			Discount:    in.Discount,
			Rating:      in.Rating,
			Images:      in.Images,
			TopPicks:    in.TopPicks,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			continue
		}
		if err != nil {
			return ProductOutput{}, errDB()
		}

		u.log.Info("product created", zap.Int64("product_id", p.ID), zap.String("slug", p.Slug))
		return toProductOutput(p), nil
	}
	return ProductOutput{}, NewHTTPError(http.StatusConflict, "slug conflict, retry")
}

// slugは作成時のものを維持する
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) (ProductOutput, error) {
	if adminUserID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := validateProductInput(in); err != nil {
		return ProductOutput{}, err
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ProductOutput{}, errDB()
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = strings.TrimSpace(in.Category)
	p.MRP = in.MRP
	p.Price = in.Price
	p.Discount = in.Discount
	p.Rating = in.Rating
	p.Images = in.Images
	p.TopPicks = in.TopPicks
	p.UpdatedAt = time.Now()

	err = u.productRepo.Update(ctx, p)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ProductOutput{}, errDB()
	}
	return toProductOutput(p), nil
}

// 論理削除＋監査ログを同じTxで
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB()
		}

		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return errDB()
		}

		before, _ := json.Marshal(map[string]any{"slug": p.Slug, "name": p.Name})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionDeleteProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   string(before),
			AfterJSON:    `{"deleted":true}`,
			CreatedAt:    time.Now(),
		}); err != nil {
			return errDB()
		}
		return nil
	})
}
