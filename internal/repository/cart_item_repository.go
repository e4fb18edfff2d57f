package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// チェックアウト用。行ロックを取る
	ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error)

	// 同一(商品,サイズ)は数量を加算
	Upsert(ctx context.Context, userID, productID int64, size string, addQty int64) (model.CartItem, error)

	// 他人の明細はErrNotFound
	FindByIDForUser(ctx context.Context, cartItemID, userID int64) (model.CartItem, error)
	FindByIDForUpdate(ctx context.Context, cartItemID, userID int64) (model.CartItem, error)
	FindByProductSizeForUpdate(ctx context.Context, userID, productID int64, size string) (model.CartItem, error)

	UpdateQuantity(ctx context.Context, cartItemID, qty int64) error
	UpdateSize(ctx context.Context, cartItemID int64, size string) error
	DeleteByID(ctx context.Context, cartItemID, userID int64) error
	DeleteByIDs(ctx context.Context, userID int64, ids []int64) error
}
