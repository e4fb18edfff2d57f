package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentOptions struct {
	Currency   string
	SuccessURL string
	FailureURL string
}

type PaymentUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	products  repo.ProductRepository
	orders    repo.OrderRepository
	payments  repo.PaymentRepository
	gateway   PaymentGateway
	events    EventPublisher
	opts      PaymentOptions
	log       *zap.Logger
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	products repo.ProductRepository,
	orders repo.OrderRepository,
	payments repo.PaymentRepository,
	gateway PaymentGateway,
	events EventPublisher,
	opts PaymentOptions,
	log *zap.Logger,
) *PaymentUsecase {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	return &PaymentUsecase{
		tx:        tx,
		addresses: addresses,
		products:  products,
		orders:    orders,
		payments:  payments,
		gateway:   gateway,
		events:    events,
		opts:      opts,
		log:       log.Named("payment"),
	}
}

type CreatePaymentInput struct {
	ProductID int64
	Size      string
	Quantity  int64
	AddressID int64
}

// フロントのチェックアウト画面に渡す値
type GatewayCheckout struct {
	Key             string `json:"key"`
	ExternalOrderID string `json:"external_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type PaymentCreateOutput struct {
	OrderID int64           `json:"order_id"`
	Gateway GatewayCheckout `json:"gateway"`
}

// 外部注文を作る。失敗は502
func (u *PaymentUsecase) openGatewayOrder(ctx context.Context, amount int64, receipt string) (string, error) {
	extID, err := u.gateway.CreateOrder(ctx, amount, u.opts.Currency, receipt)
	if err != nil {
		u.log.Error("gateway create order failed", zap.Error(err), zap.String("receipt", receipt))
		return "", NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	}
	return extID, nil
}

// 商品を直接購入して決済を開始する
// ゲートウェイの注文を先に作り、その後で注文・明細・決済を1つのTxで作る
func (u *PaymentUsecase) CreateForProduct(ctx context.Context, userID int64, in CreatePaymentInput) (PaymentCreateOutput, error) {
	if userID <= 0 {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	size := normalizeSize(in.Size)
	if size == "" {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusBadRequest, "size is required")
	}
	if err := validateSize(size); err != nil {
		return PaymentCreateOutput{}, err
	}
	if in.AddressID <= 0 {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusBadRequest, "address_id is required")
	}
	qty, err := clampQuantity(in.Quantity)
	if err != nil {
		return PaymentCreateOutput{}, err
	}

	p, err := u.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return PaymentCreateOutput{}, errDB()
	}
	if err := checkAddress(ctx, u.addresses, userID, in.AddressID); err != nil {
		return PaymentCreateOutput{}, err
	}

	total, err := orderTotal([]model.OrderItem{{Price: p.Price, Quantity: qty}})
	if err != nil {
		return PaymentCreateOutput{}, err
	}
	amount, err := toMinorUnits(total)
	if err != nil {
		return PaymentCreateOutput{}, err
	}

	extID, err := u.openGatewayOrder(ctx, amount, "rcpt_"+uuid.NewString()[:18])
	if err != nil {
		return PaymentCreateOutput{}, err
	}

	var out PaymentCreateOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, _, err := createSingleItemOrder(ctx, r, userID, in.AddressID, p, size, qty)
		if err != nil {
			return err
		}

		pay, err := r.Payments().Create(ctx, model.Payment{
			OrderID:         o.ID,
			ExternalOrderID: extID,
			Amount:          amount,
			Currency:        u.opts.Currency,
			Status:          model.PaymentStatusCreated,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return NewHTTPError(http.StatusConflict, "payment already initiated")
		}
		if err != nil {
			return errDB()
		}

		out = u.checkoutOutput(o.ID, pay)
		return nil
	})
	if err != nil {
		return PaymentCreateOutput{}, err
	}

	u.log.Info("payment created",
		zap.Int64("order_id", out.OrderID),
		zap.String("external_order_id", extID),
		zap.Int64("amount", amount))
	publishEvent(ctx, u.events, u.log, model.OrderEvent{
		Type:    model.OrderEventCreated,
		OrderID: out.OrderID,
		UserID:  userID,
		Status:  model.OrderStatusPending,
		Amount:  total,
	})
	return out, nil
}

// 既存のPENDING注文（カート決済など）の支払いを開始する
func (u *PaymentUsecase) CreateForOrder(ctx context.Context, userID int64, orderID int64) (PaymentCreateOutput, error) {
	if userID <= 0 {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusBadRequest, "order_id is required")
	}

	o, err := u.orders.FindByIDForUser(ctx, orderID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return PaymentCreateOutput{}, errDB()
	}

	_, err = u.payments.FindByOrderID(ctx, orderID)
	if err == nil {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusConflict, "payment already initiated")
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return PaymentCreateOutput{}, errDB()
	}
	if o.Status != model.OrderStatusPending {
		return PaymentCreateOutput{}, NewHTTPError(http.StatusConflict, "order is not payable")
	}

	amount, err := toMinorUnits(o.TotalAmount)
	if err != nil {
		return PaymentCreateOutput{}, err
	}
	extID, err := u.openGatewayOrder(ctx, amount, "order_"+strconv.FormatInt(o.ID, 10))
	if err != nil {
		return PaymentCreateOutput{}, err
	}

	var out PaymentCreateOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		pay, err := r.Payments().Create(ctx, model.Payment{
			OrderID:         o.ID,
			ExternalOrderID: extID,
			Amount:          amount,
			Currency:        u.opts.Currency,
			Status:          model.PaymentStatusCreated,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return NewHTTPError(http.StatusConflict, "payment already initiated")
		}
		if err != nil {
			return errDB()
		}
		out = u.checkoutOutput(o.ID, pay)
		return nil
	})
	if err != nil {
		return PaymentCreateOutput{}, err
	}

	u.log.Info("payment created",
		zap.Int64("order_id", o.ID),
		zap.String("external_order_id", extID),
		zap.Int64("amount", amount))
	return out, nil
}

func (u *PaymentUsecase) checkoutOutput(orderID int64, pay model.Payment) PaymentCreateOutput {
	return PaymentCreateOutput{
		OrderID: orderID,
		Gateway: GatewayCheckout{
			Key:             u.gateway.KeyID(),
			ExternalOrderID: pay.ExternalOrderID,
			Amount:          pay.Amount,
			Currency:        pay.Currency,
		},
	}
}

// 支払い確定。CREATEDのときだけPAIDにして、注文をPENDING->CONFIRMEDへ
// 2回目以降は何もしない。現在の決済を返す
func (u *PaymentUsecase) ConfirmPaid(ctx context.Context, externalOrderID, paymentID, signature string) (model.Payment, error) {
	var (
		pay     model.Payment
		changed bool
		userID  int64
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByExternalOrderID(ctx, externalOrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "payment not found")
		}
		if err != nil {
			return errDB()
		}
		pay = p

		ok, err := r.Payments().MarkPaidIfCreated(ctx, externalOrderID, paymentID, signature)
		if err != nil {
			return errDB()
		}
		if !ok {
			// 先に別経路で確定済み
			return nil
		}
		changed = true
		pay.Status = model.PaymentStatusPaid
		pay.ExternalPaymentID = paymentID

		if _, err := r.Orders().UpdateStatusIf(ctx, p.OrderID, model.OrderStatusPending, model.OrderStatusConfirmed); err != nil {
			return errDB()
		}

		o, err := r.Orders().FindByID(ctx, p.OrderID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return errDB()
		}
		userID = o.UserID
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}

	if changed {
		u.log.Info("payment confirmed",
			zap.Int64("order_id", pay.OrderID),
			zap.String("external_order_id", externalOrderID),
			zap.String("payment_id", paymentID))
		publishEvent(ctx, u.events, u.log, model.OrderEvent{
			Type:       model.OrderEventConfirmed,
			OrderID:    pay.OrderID,
			UserID:     userID,
			Status:     model.OrderStatusConfirmed,
			PrevStatus: model.OrderStatusPending,
			Amount:     pay.Amount,
		})
	}
	return pay, nil
}

// CREATEDのときだけFAILEDに。注文は触らない
func (u *PaymentUsecase) MarkFailed(ctx context.Context, externalOrderID, paymentID string) (model.Payment, error) {
	var (
		pay     model.Payment
		changed bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByExternalOrderID(ctx, externalOrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "payment not found")
		}
		if err != nil {
			return errDB()
		}
		pay = p

		ok, err := r.Payments().MarkFailedIfCreated(ctx, externalOrderID, paymentID)
		if err != nil {
			return errDB()
		}
		if ok {
			changed = true
			pay.Status = model.PaymentStatusFailed
			pay.ExternalPaymentID = paymentID
		}
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}

	if changed {
		u.log.Warn("payment failed",
			zap.Int64("order_id", pay.OrderID),
			zap.String("external_order_id", externalOrderID),
			zap.String("payment_id", paymentID))
		publishEvent(ctx, u.events, u.log, model.OrderEvent{
			Type:    model.OrderEventPaymentFailed,
			OrderID: pay.OrderID,
			Status:  model.OrderStatusPending,
			Amount:  pay.Amount,
		})
	}
	return pay, nil
}

// ゲートウェイからのリダイレクト（フォーム）
type CallbackInput struct {
	ExternalOrderID string
	PaymentID       string
	Signature       string
}

// 戻り先URLを返す。失敗はすべて失敗ページへ
func (u *PaymentUsecase) HandleCallback(ctx context.Context, in CallbackInput) string {
	extID := strings.TrimSpace(in.ExternalOrderID)
	payID := strings.TrimSpace(in.PaymentID)
	sig := strings.TrimSpace(in.Signature)

	if extID == "" || payID == "" || sig == "" {
		u.log.Warn("callback missing fields", zap.String("external_order_id", extID))
		return u.opts.FailureURL
	}
	if !u.gateway.VerifyPaymentSignature(extID, payID, sig) {
		u.log.Warn("callback signature mismatch", zap.String("external_order_id", extID))
		return u.opts.FailureURL
	}

	pay, err := u.ConfirmPaid(ctx, extID, payID, sig)
	if err != nil {
		u.log.Warn("callback confirm failed", zap.Error(err), zap.String("external_order_id", extID))
		return u.opts.FailureURL
	}
	if pay.Status != model.PaymentStatusPaid {
		return u.opts.FailureURL
	}
	return withOrderID(u.opts.SuccessURL, pay.OrderID)
}

func withOrderID(base string, orderID int64) string {
	uu, err := url.Parse(base)
	if err != nil || base == "" {
		return base
	}
	q := uu.Query()
	q.Set("order_id", strconv.FormatInt(orderID, 10))
	uu.RawQuery = q.Encode()
	return uu.String()
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// 何をしたか（ログとレスポンス用）
type WebhookResult struct {
	Status string `json:"status"`
	Event  string `json:"event,omitempty"`
}

const (
	WebhookProcessed = "processed"
	WebhookIgnored   = "ignored"
)

// 署名不正・未知イベント・未知IDはすべて受理して何もしない
// DBエラーだけは返す（ゲートウェイに再送させる）
func (u *PaymentUsecase) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if !u.gateway.VerifyWebhookSignature(body, signature) {
		u.log.Warn("webhook signature mismatch", zap.Int("body_len", len(body)))
		return WebhookResult{Status: WebhookIgnored}, nil
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		u.log.Warn("webhook body is not json", zap.Error(err))
		return WebhookResult{Status: WebhookIgnored}, nil
	}

	entity := env.Payload.Payment.Entity
	extID := entity.OrderID
	if extID == "" {
		extID = env.Payload.Order.Entity.ID
	}
	res := WebhookResult{Status: WebhookIgnored, Event: env.Event}

	var err error
	switch env.Event {
	case "payment.captured", "order.paid":
		_, err = u.ConfirmPaid(ctx, extID, entity.ID, "")
	case "payment.failed":
		_, err = u.MarkFailed(ctx, extID, entity.ID)
	default:
		u.log.Info("webhook event ignored", zap.String("event", env.Event))
		return res, nil
	}

	if he, ok := AsHTTPError(err); ok && he.Status == http.StatusNotFound {
		u.log.Warn("webhook for unknown payment", zap.String("event", env.Event), zap.String("external_order_id", extID))
		return res, nil
	}
	if err != nil {
		return res, err
	}

	res.Status = WebhookProcessed
	return res, nil
}
