package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	cartItems  repo.CartItemRepository
	products   repo.ProductRepository
	payments   repo.PaymentRepository
	reviews    repo.ReviewRepository
	otps       repo.OTPRepository
	auditLogs  repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *TxReposMock) Products() repo.ProductRepository     { return r.products }
func (r *TxReposMock) Payments() repo.PaymentRepository     { return r.payments }
func (r *TxReposMock) Reviews() repo.ReviewRepository       { return r.reviews }
func (r *TxReposMock) OTPs() repo.OTPRepository             { return r.otps }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUser(ctx context.Context, orderID, userID int64) (model.Order, error) {
	args := m.Called(ctx, orderID, userID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(ctx, order)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateStatusIf(ctx context.Context, orderID int64, from, to model.OrderStatus) (bool, error) {
	args := m.Called(ctx, orderID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) Upsert(ctx context.Context, userID, productID int64, size string, addQty int64) (model.CartItem, error) {
	args := m.Called(ctx, userID, productID, size, addQty)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) FindByIDForUser(ctx context.Context, cartItemID, userID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID, userID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) FindByIDForUpdate(ctx context.Context, cartItemID, userID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID, userID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) FindByProductSizeForUpdate(ctx context.Context, userID, productID int64, size string) (model.CartItem, error) {
	args := m.Called(ctx, userID, productID, size)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID, qty int64) error {
	return m.Called(ctx, cartItemID, qty).Error(0)
}

func (m *CartItemRepoMock) UpdateSize(ctx context.Context, cartItemID int64, size string) error {
	return m.Called(ctx, cartItemID, size).Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID, userID int64) error {
	return m.Called(ctx, cartItemID, userID).Error(0)
}

func (m *CartItemRepoMock) DeleteByIDs(ctx context.Context, userID int64, ids []int64) error {
	return m.Called(ctx, userID, ids).Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	args := m.Called(ctx, ids)
	ps, _ := args.Get(0).(map[int64]model.Product)
	return ps, args.Error(1)
}

func (m *ProductRepoMock) ListSlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	args := m.Called(ctx, base)
	ss, _ := args.Get(0).([]string)
	return ss, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ProductRepoMock) UpdateRating(ctx context.Context, id int64, rating float64) error {
	return m.Called(ctx, id, rating).Error(0)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Payment)
	return out, args.Error(1)
}

func (m *PaymentRepoMock) FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	args := m.Called(ctx, orderID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindByExternalOrderID(ctx context.Context, externalOrderID string) (model.Payment, error) {
	args := m.Called(ctx, externalOrderID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) MarkPaidIfCreated(ctx context.Context, externalOrderID, paymentID, signature string) (bool, error) {
	args := m.Called(ctx, externalOrderID, paymentID, signature)
	return args.Bool(0), args.Error(1)
}

func (m *PaymentRepoMock) MarkFailedIfCreated(ctx context.Context, externalOrderID, paymentID string) (bool, error) {
	args := m.Called(ctx, externalOrderID, paymentID)
	return args.Bool(0), args.Error(1)
}

type ReviewRepoMock struct{ mock.Mock }

func (m *ReviewRepoMock) Upsert(ctx context.Context, r model.Review) (model.Review, error) {
	args := m.Called(ctx, r)
	out, _ := args.Get(0).(model.Review)
	return out, args.Error(1)
}

func (m *ReviewRepoMock) FindByID(ctx context.Context, id int64) (model.Review, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(model.Review)
	return out, args.Error(1)
}

func (m *ReviewRepoMock) ListByProductID(ctx context.Context, productID int64) ([]model.Review, error) {
	args := m.Called(ctx, productID)
	out, _ := args.Get(0).([]model.Review)
	return out, args.Error(1)
}

func (m *ReviewRepoMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ReviewRepoMock) RatingStats(ctx context.Context, productID int64) (float64, int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}

type OTPRepoMock struct{ mock.Mock }

func (m *OTPRepoMock) InvalidateUnused(ctx context.Context, mobile string) error {
	return m.Called(ctx, mobile).Error(0)
}

func (m *OTPRepoMock) Create(ctx context.Context, otp *model.OTP) error {
	return m.Called(ctx, otp).Error(0)
}

func (m *OTPRepoMock) FindLatestUnused(ctx context.Context, mobile string) (model.OTP, error) {
	args := m.Called(ctx, mobile)
	o, _ := args.Get(0).(model.OTP)
	return o, args.Error(1)
}

func (m *OTPRepoMock) Consume(ctx context.Context, otpID int64) (bool, error) {
	args := m.Called(ctx, otpID)
	return args.Bool(0), args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type AddressRepoMock struct{ mock.Mock }

func (m *AddressRepoMock) Create(ctx context.Context, a model.Address) (model.Address, error) {
	args := m.Called(ctx, a)
	out, _ := args.Get(0).(model.Address)
	return out, args.Error(1)
}

func (m *AddressRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]model.Address)
	return out, args.Error(1)
}

func (m *AddressRepoMock) FindByIDForUser(ctx context.Context, addressID, userID int64) (model.Address, error) {
	args := m.Called(ctx, addressID, userID)
	out, _ := args.Get(0).(model.Address)
	return out, args.Error(1)
}

func (m *AddressRepoMock) Update(ctx context.Context, a model.Address) error {
	return m.Called(ctx, a).Error(0)
}

func (m *AddressRepoMock) Delete(ctx context.Context, addressID, userID int64) error {
	return m.Called(ctx, addressID, userID).Error(0)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByMobile(ctx context.Context, mobile string) (*model.User, error) {
	args := m.Called(ctx, mobile)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) UpdateProfile(ctx context.Context, userID int64, p repo.ProfileUpdate) error {
	return m.Called(ctx, userID, p).Error(0)
}

func (m *UserRepoMock) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type RefreshTokenRepoMock struct{ mock.Mock }

func (m *RefreshTokenRepoMock) Create(ctx context.Context, t *model.RefreshToken) error {
	return m.Called(ctx, t).Error(0)
}

func (m *RefreshTokenRepoMock) FindByTokenHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, hash)
	t, _ := args.Get(0).(*model.RefreshToken)
	return t, args.Error(1)
}

func (m *RefreshTokenRepoMock) MarkUsed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RefreshTokenRepoMock) DeleteAllByUserID(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *RefreshTokenRepoMock) DeleteByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type DeliveryRepoMock struct{ mock.Mock }

func (m *DeliveryRepoMock) FindByPincode(ctx context.Context, pincode string) (model.DeliveryPincode, error) {
	args := m.Called(ctx, pincode)
	p, _ := args.Get(0).(model.DeliveryPincode)
	return p, args.Error(1)
}

func (m *DeliveryRepoMock) CreateIfNotExists(ctx context.Context, p model.DeliveryPincode) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

// =====================
// Port mocks
// =====================

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, ev model.OrderEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) KeyID() string { return "rzp_test" }

func (m *GatewayMock) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	args := m.Called(ctx, amount, currency, receipt)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) VerifyPaymentSignature(orderID, paymentID, sig string) bool {
	return m.Called(orderID, paymentID, sig).Bool(0)
}

func (m *GatewayMock) VerifyWebhookSignature(body []byte, sig string) bool {
	return m.Called(body, sig).Bool(0)
}

type SMSMock struct{ mock.Mock }

func (m *SMSMock) Send(ctx context.Context, mobile, code string) error {
	return m.Called(ctx, mobile, code).Error(0)
}

type TokenIssuerMock struct{ mock.Mock }

func (m *TokenIssuerMock) Issue(user *model.User) (string, int, error) {
	args := m.Called(user)
	return args.String(0), args.Int(1), args.Error(2)
}

// =====================
// Helpers
// =====================

// HTTPErrorのstatusとメッセージを確認
func assertHTTPError(t *testing.T, err error, status int, wantSubstr string) {
	t.Helper()
	if !assert.Error(t, err) {
		return
	}
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "not HTTPError: %v", err) {
		assert.Equal(t, status, he.Status)
		assert.True(t, strings.Contains(he.Message, wantSubstr), "msg=%q want contains %q", he.Message, wantSubstr)
	}
}
