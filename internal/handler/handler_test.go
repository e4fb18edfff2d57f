package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	"github.com/eshuuux/saptrangi-backend/internal/infra/token"
	"github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"
	"github.com/eshuuux/saptrangi-backend/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 使うメソッドだけ実装する。それ以外を呼ぶとpanic
type userRepoStub struct {
	repository.UserRepository
	user *model.User
}

func (s *userRepoStub) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, repository.ErrNotFound
	}
	return s.user, nil
}

type pincodeRepoStub struct {
	repository.DeliveryPincodeRepository
	rows map[string]model.DeliveryPincode
}

func (s *pincodeRepoStub) FindByPincode(ctx context.Context, pincode string) (model.DeliveryPincode, error) {
	p, ok := s.rows[pincode]
	if !ok {
		return model.DeliveryPincode{}, repository.ErrNotFound
	}
	return p, nil
}

type gatewayStub struct {
	paymentOK bool
	webhookOK bool
}

func (g gatewayStub) KeyID() string { return "rzp_test" }
func (g gatewayStub) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	return "", errors.New("not used")
}
func (g gatewayStub) VerifyPaymentSignature(externalOrderID, paymentID, signature string) bool {
	return g.paymentOK
}
func (g gatewayStub) VerifyWebhookSignature(body []byte, signature string) bool { return g.webhookOK }

type paymentRepoStub struct {
	repository.PaymentRepository
	pay     model.Payment
	findErr error
}

func (s *paymentRepoStub) FindByExternalOrderID(ctx context.Context, externalOrderID string) (model.Payment, error) {
	if s.findErr != nil {
		return model.Payment{}, s.findErr
	}
	return s.pay, nil
}

func (s *paymentRepoStub) MarkPaidIfCreated(ctx context.Context, externalOrderID, paymentID, signature string) (bool, error) {
	if s.pay.Status != model.PaymentStatusCreated {
		return false, nil
	}
	s.pay.Status = model.PaymentStatusPaid
	return true, nil
}

type orderRepoStub struct {
	repository.OrderRepository
	order model.Order
}

func (s *orderRepoStub) UpdateStatusIf(ctx context.Context, orderID int64, from, to model.OrderStatus) (bool, error) {
	if s.order.Status != from {
		return false, nil
	}
	s.order.Status = to
	return true, nil
}

func (s *orderRepoStub) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return s.order, nil
}

type txReposStub struct {
	repository.TxRepos
	payments *paymentRepoStub
	orders   *orderRepoStub
}

func (r *txReposStub) Payments() repository.PaymentRepository { return r.payments }
func (r *txReposStub) Orders() repository.OrderRepository     { return r.orders }

type txStub struct{ repos *txReposStub }

func (t *txStub) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	return fn(t.repos)
}

const (
	successURL = "https://shop.example/payment/success"
	failureURL = "https://shop.example/payment/failure"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.New()
	return e
}

func newPaymentHandler(gw gatewayStub, tx *txStub) *PaymentHandler {
	uc := usecase.NewPaymentUsecase(tx, nil, nil, nil, nil, gw, nil, usecase.PaymentOptions{
		SuccessURL: successURL,
		FailureURL: failureURL,
	}, zap.NewNop())
	return NewPaymentHandler(uc, nil)
}

func postForm(e *echo.Echo, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPaymentCallback_MissingFieldsRedirectsToFailure(t *testing.T) {
	e := newEcho()
	newPaymentHandler(gatewayStub{paymentOK: true}, nil).RegisterRoutes(e, config.Config{JWTSecret: "s"}, &userRepoStub{})

	rec := postForm(e, "/payment/callback", url.Values{"razorpay_order_id": {"order_1"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, failureURL, rec.Header().Get(echo.HeaderLocation))
}

func TestPaymentCallback_BadSignatureRedirectsToFailure(t *testing.T) {
	e := newEcho()
	newPaymentHandler(gatewayStub{paymentOK: false}, nil).RegisterRoutes(e, config.Config{JWTSecret: "s"}, &userRepoStub{})

	rec := postForm(e, "/payment/callback", url.Values{
		"razorpay_order_id":   {"order_1"},
		"razorpay_payment_id": {"pay_1"},
		"razorpay_signature":  {"bad"},
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, failureURL, rec.Header().Get(echo.HeaderLocation))
}

func TestPaymentCallback_PaidRedirectsToSuccess(t *testing.T) {
	repos := &txReposStub{
		payments: &paymentRepoStub{pay: model.Payment{OrderID: 9, Status: model.PaymentStatusCreated}},
		orders:   &orderRepoStub{order: model.Order{ID: 9, UserID: 3, Status: model.OrderStatusPending}},
	}
	e := newEcho()
	newPaymentHandler(gatewayStub{paymentOK: true}, &txStub{repos: repos}).RegisterRoutes(e, config.Config{JWTSecret: "s"}, &userRepoStub{})

	rec := postForm(e, "/payment/callback", url.Values{
		"razorpay_order_id":   {"order_1"},
		"razorpay_payment_id": {"pay_1"},
		"razorpay_signature":  {"sig"},
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, successURL+"?order_id=9", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, model.OrderStatusConfirmed, repos.orders.order.Status)
}

func TestPaymentWebhook_BadSignatureIsIgnored(t *testing.T) {
	e := newEcho()
	newPaymentHandler(gatewayStub{webhookOK: false}, nil).RegisterRoutes(e, config.Config{JWTSecret: "s"}, &userRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/payment/webhook", strings.NewReader(`{"event":"payment.captured"}`))
	req.Header.Set(webhookSignatureHeader, "nope")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res usecase.WebhookResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, usecase.WebhookIgnored, res.Status)
}

func TestPaymentWebhook_DBErrorIs500(t *testing.T) {
	repos := &txReposStub{payments: &paymentRepoStub{findErr: errors.New("conn reset")}}
	e := newEcho()
	newPaymentHandler(gatewayStub{webhookOK: true}, &txStub{repos: repos}).RegisterRoutes(e, config.Config{JWTSecret: "s"}, &userRepoStub{})

	body := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var res ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, usecase.CodeInternal, res.Code)
}

func TestDeliveryCheck(t *testing.T) {
	repo := &pincodeRepoStub{rows: map[string]model.DeliveryPincode{
		"560001": {Pincode: "560001", City: "Bengaluru", State: "Karnataka", IsActive: true},
	}}
	e := newEcho()
	NewDeliveryHandler(usecase.NewDeliveryUsecase(repo, zap.NewNop())).RegisterRoutes(e, config.Config{JWTSecret: "s"}, &userRepoStub{})

	tests := []struct {
		name      string
		pincode   string
		status    int
		available bool
	}{
		{name: "available", pincode: "560001", status: http.StatusOK, available: true},
		{name: "unknown", pincode: "110001", status: http.StatusOK},
		{name: "bad format", pincode: "56ab", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/delivery/pincodes/check?pincode="+tt.pincode, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			var out usecase.PincodeCheckOutput
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, tt.available, out.DeliveryAvailable)
		})
	}
}

func TestDeliveryUpload_RequiresAdmin(t *testing.T) {
	cfg := config.Config{JWTSecret: "secret"}
	user := &model.User{ID: 5, Role: model.RoleUser, IsActive: true}
	e := newEcho()
	NewDeliveryHandler(usecase.NewDeliveryUsecase(&pincodeRepoStub{}, zap.NewNop())).RegisterRoutes(e, cfg, &userRepoStub{user: user})

	raw, _, err := token.NewJWTIssuer(cfg.JWTSecret, time.Hour).Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/delivery/pincodes/upload", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCartAdd_ValidationAndAuth(t *testing.T) {
	cfg := config.Config{JWTSecret: "secret"}
	user := &model.User{ID: 5, Role: model.RoleUser, IsActive: true}
	e := newEcho()
	NewCartHandler(usecase.NewCartUsecase(nil, nil, nil)).RegisterRoutes(e, cfg, &userRepoStub{user: user})

	raw, _, err := token.NewJWTIssuer(cfg.JWTSecret, time.Hour).Issue(user)
	require.NoError(t, err)

	t.Run("no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cart/add", strings.NewReader(`{"product_id":1}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing product_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cart/add", strings.NewReader(`{"size":"M"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var res ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, usecase.CodeValidation, res.Code)
	})

	t.Run("quantity over limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cart/add", strings.NewReader(`{"product_id":1,"quantity":101}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var res ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, usecase.CodeValidation, res.Code)
	})

	t.Run("broken json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cart/add", strings.NewReader(`{`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var res ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "invalid body", res.Error)
	})
}
