package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"
)

// CartUsecase は /cart の業務ロジック
// 明細は (user, product, size) ごとに1行
type CartUsecase struct {
	tx           repo.TransactionManager
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	tx repo.TransactionManager,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		tx:           tx,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// price は商品の現在価格
type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Image     string `json:"image"`
	Size      string `json:"size"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
	// 商品が削除済みならfalse（合計に含めない）
	Available bool `json:"available"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Size      string
	Quantity  int64
}

const maxSizeLen = 20

// 前後空白を除いて大文字に
func normalizeSize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func validateSize(s string) error {
	if utf8.RuneCountInString(s) > maxSizeLen {
		return NewHTTPError(http.StatusBadRequest, "size too long")
	}
	return nil
}

func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.buildCartResponse(ctx, userID)
}

// 同一(商品,サイズ)は数量加算
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity > model.MaxCartQuantity {
		return CartResponse{}, errQuantityTooLarge()
	}
	size := normalizeSize(in.Size)
	if err := validateSize(size); err != nil {
		return CartResponse{}, err
	}

	_, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, errDB()
	}

	_, err = u.cartItemRepo.Upsert(ctx, userID, in.ProductID, size, in.Quantity)
	if errors.Is(err, repo.ErrQuantityLimit) {
		return CartResponse{}, errQuantityTooLarge()
	}
	if err != nil {
		return CartResponse{}, errDB()
	}

	return u.buildCartResponse(ctx, userID)
}

// 1未満なら明細を削除する。削除したらremoved=true
func (u *CartUsecase) UpdateQuantity(ctx context.Context, userID int64, cartItemID int64, quantity int64) (CartResponse, bool, error) {
	if userID <= 0 {
		return CartResponse{}, false, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, false, NewHTTPError(http.StatusBadRequest, "invalid cart_id")
	}

	if quantity < 1 {
		err := u.cartItemRepo.DeleteByID(ctx, cartItemID, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, false, NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return CartResponse{}, false, errDB()
		}
		cart, err := u.buildCartResponse(ctx, userID)
		return cart, true, err
	}
	if quantity > model.MaxCartQuantity {
		return CartResponse{}, false, errQuantityTooLarge()
	}

	// 所有チェック
	_, err := u.cartItemRepo.FindByIDForUser(ctx, cartItemID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, false, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return CartResponse{}, false, errDB()
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, false, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CartResponse{}, false, errDB()
	}

	cart, err := u.buildCartResponse(ctx, userID)
	return cart, false, err
}

// サイズ変更。同じ商品で新サイズの行があれば数量を合算して元の行を消す
func (u *CartUsecase) UpdateSize(ctx context.Context, userID int64, cartItemID int64, size string) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid cart_id")
	}
	newSize := normalizeSize(size)
	if err := validateSize(newSize); err != nil {
		return CartResponse{}, err
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.CartItems().FindByIDForUpdate(ctx, cartItemID, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB()
		}
		if item.Size == newSize {
			return nil
		}

		other, err := r.CartItems().FindByProductSizeForUpdate(ctx, userID, item.ProductID, newSize)
		switch {
		case err == nil:
			if other.Quantity+item.Quantity > model.MaxCartQuantity {
				return errQuantityTooLarge()
			}
			if err := r.CartItems().UpdateQuantity(ctx, other.ID, other.Quantity+item.Quantity); err != nil {
				return errDB()
			}
			if err := r.CartItems().DeleteByID(ctx, item.ID, userID); err != nil {
				return errDB()
			}
			return nil
		case errors.Is(err, repo.ErrNotFound):
			err := r.CartItems().UpdateSize(ctx, item.ID, newSize)
			if errors.Is(err, repo.ErrDuplicate) {
				return NewHTTPError(http.StatusConflict, "cart changed, retry")
			}
			if err != nil {
				return errDB()
			}
			return nil
		default:
			return errDB()
		}
	})
	if err != nil {
		return CartResponse{}, err
	}

	return u.buildCartResponse(ctx, userID)
}

func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.cartItemRepo.DeleteByID(ctx, cartItemID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return CartResponse{}, errDB()
	}

	return u.buildCartResponse(ctx, userID)
}

// 明細＋商品の現在価格からレスポンスを作る
func (u *CartUsecase) buildCartResponse(ctx context.Context, userID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, errDB()
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	products := map[int64]model.Product{}
	if len(ids) > 0 {
		products, err = u.productRepo.FindByIDs(ctx, ids)
		if err != nil {
			return CartResponse{}, errDB()
		}
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	for _, it := range items {
		line := CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
		}
		if p, ok := products[it.ProductID]; ok {
			line.Name = p.Name
			line.Slug = p.Slug
			line.Image = p.MainImage()
			line.Price = p.Price
			line.LineTotal = p.Price * it.Quantity
			line.Available = true
			resp.Total += line.LineTotal
		}
		resp.Items = append(resp.Items, line)
	}
	return resp, nil
}
