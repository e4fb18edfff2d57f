package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"go.uber.org/zap"
)

type OrderUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	products  repo.ProductRepository
	events    EventPublisher
	log       *zap.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	products repo.ProductRepository,
	events EventPublisher,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		addresses: addresses,
		products:  products,
		events:    events,
		log:       log.Named("order"),
	}
}

type BuyNowInput struct {
	ProductID int64
	Size      string
	Quantity  int64
	AddressID int64
}

type PlaceOrderInput struct {
	AddressID int64
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	AddressID   *int64            `json:"address_id"`
	Status      string            `json:"status"`
	TotalAmount int64             `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderItemOutput `json:"items"`
}

type OrderStatusOutput struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

// 住所の存在確認＋所有チェック（他人の住所は404）
func checkAddress(ctx context.Context, addresses repo.AddressRepository, userID, addressID int64) error {
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "address_id is required")
	}
	_, err := addresses.FindByIDForUser(ctx, addressID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "address not found")
	}
	if err != nil {
		return errDB()
	}
	return nil
}

// 単品の注文＋明細をTx内で作る
func createSingleItemOrder(ctx context.Context, r repo.TxRepos, userID, addressID int64, p model.Product, size string, qty int64) (model.Order, []model.OrderItem, error) {
	items := []model.OrderItem{{
		ProductID:   p.ID,
		ProductName: p.Name,
		Size:        size,
		Quantity:    qty,
		Price:       p.Price,
	}}
	total, err := orderTotal(items)
	if err != nil {
		return model.Order{}, nil, err
	}

	aid := addressID
	o, err := r.Orders().Create(ctx, model.Order{
		UserID:      userID,
		AddressID:   &aid,
		TotalAmount: total,
		Status:      model.OrderStatusPending,
	})
	if err != nil {
		return model.Order{}, nil, errDB()
	}

	items[0].OrderID = o.ID
	if err := r.OrderItems().CreateBulk(ctx, o.ID, items); err != nil {
		return model.Order{}, nil, errDB()
	}
	return o, items, nil
}

// 商品を直接購入（カートを通さない）
func (u *OrderUsecase) BuyNow(ctx context.Context, userID int64, in BuyNowInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	size := normalizeSize(in.Size)
	if err := validateSize(size); err != nil {
		return OrderOutput{}, err
	}
	qty, err := clampQuantity(in.Quantity)
	if err != nil {
		return OrderOutput{}, err
	}

	p, err := u.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return OrderOutput{}, errDB()
	}
	if err := checkAddress(ctx, u.addresses, userID, in.AddressID); err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, items, err := createSingleItemOrder(ctx, r, userID, in.AddressID, p, size, qty)
		if err != nil {
			return err
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("order created", zap.Int64("order_id", out.ID), zap.Int64("user_id", userID), zap.String("via", "buy_now"))
	publishEvent(ctx, u.events, u.log, model.OrderEvent{
		Type:    model.OrderEventCreated,
		OrderID: out.ID,
		UserID:  userID,
		Status:  model.OrderStatusPending,
		Amount:  out.TotalAmount,
	})
	return out, nil
}

// カートの中身から注文を作り、使った明細を消す
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := checkAddress(ctx, u.addresses, userID, in.AddressID); err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//カート明細を行ロックで取得
		cartItems, err := r.CartItems().ListByUserIDForUpdate(ctx, userID)
		if err != nil {
			return errDB()
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "Cart is empty")
		}

		ids := make([]int64, 0, len(cartItems))
		for _, ci := range cartItems {
			ids = append(ids, ci.ProductID)
		}
		products, err := r.Products().FindByIDs(ctx, ids)
		if err != nil {
			return errDB()
		}

		//価格スナップショット
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		consumed := make([]int64, 0, len(cartItems))
		for _, ci := range cartItems {
			p, ok := products[ci.ProductID]
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "product unavailable")
			}
			orderItems = append(orderItems, model.OrderItem{
				ProductID:   ci.ProductID,
				ProductName: p.Name,
				Size:        ci.Size,
				Quantity:    ci.Quantity,
				Price:       p.Price,
			})
			consumed = append(consumed, ci.ID)
		}
		total, err := orderTotal(orderItems)
		if err != nil {
			return err
		}

		aid := in.AddressID
		o, err := r.Orders().Create(ctx, model.Order{
			UserID:      userID,
			AddressID:   &aid,
			TotalAmount: total,
			Status:      model.OrderStatusPending,
		})
		if err != nil {
			return errDB()
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, o.ID, orderItems); err != nil {
			return errDB()
		}

		//使った明細だけ消す
		if err := r.CartItems().DeleteByIDs(ctx, userID, consumed); err != nil {
			return errDB()
		}

		out = toOrderOutput(o, orderItems)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("order created", zap.Int64("order_id", out.ID), zap.Int64("user_id", userID), zap.String("via", "cart"))
	publishEvent(ctx, u.events, u.log, model.OrderEvent{
		Type:    model.OrderEventCreated,
		OrderID: out.ID,
		UserID:  userID,
		Status:  model.OrderStatusPending,
		Amount:  out.TotalAmount,
	})
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングでまずは固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return errDB()
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return errDB()
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//他人の注文は「存在しない扱い」にする
		o, err := r.Orders().FindByIDForUser(ctx, orderID, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB()
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return errDB()
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetOrderStatus(ctx context.Context, userID int64, orderID int64) (OrderStatusOutput, error) {
	if userID <= 0 {
		return OrderStatusOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderStatusOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderStatusOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUser(ctx, orderID, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB()
		}
		out = OrderStatusOutput{OrderID: o.ID, Status: string(o.Status)}
		return nil
	})
	if err != nil {
		return OrderStatusOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Size:      it.Size,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:          o.ID,
		UserID:      o.UserID,
		AddressID:   o.AddressID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		Items:       outItems,
	}
}
