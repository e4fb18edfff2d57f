package repository

import (
	"context"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 他人の注文はErrNotFound
	FindByIDForUser(ctx context.Context, orderID, userID int64) (model.Order, error)
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (model.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	// 現在がfromのときだけtoへ更新。更新できたらtrue
	UpdateStatusIf(ctx context.Context, orderID int64, from, to model.OrderStatus) (bool, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	// DELIVEREDの注文にその商品が含まれるか（レビューの購入確認）
	HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error)
}
