package handler

import (
	"io"
	"net/http"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/middleware"
	"github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/labstack/echo/v4"
)

// webhook本文の上限
const maxWebhookBody = 1 << 20

const webhookSignatureHeader = "X-Razorpay-Signature"

type PaymentHandler struct {
	payments *usecase.PaymentUsecase
	orders   *usecase.OrderUsecase
}

func NewPaymentHandler(payments *usecase.PaymentUsecase, orders *usecase.OrderUsecase) *PaymentHandler {
	return &PaymentHandler{payments: payments, orders: orders}
}

type PaymentCreateRequest struct {
	ProductID int64  `json:"product_id" validate:"required"`
	Size      string `json:"size" validate:"required,max=20"`
	Quantity  int64  `json:"quantity" validate:"max=100"`
	AddressID int64  `json:"address_id" validate:"required"`
}

type PaymentCheckoutRequest struct {
	OrderID int64 `json:"order_id" validate:"required"`
}

// ゲートウェイのリダイレクトはフォームで来る
type PaymentCallbackForm struct {
	OrderID   string `form:"razorpay_order_id"`
	PaymentID string `form:"razorpay_payment_id"`
	Signature string `form:"razorpay_signature"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	authMW := []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	}

	e.POST("/payment/create", h.create, authMW...)
	e.POST("/payment/checkout", h.checkout, authMW...)
	e.GET("/order-status/:id", h.orderStatus, authMW...)

	// ゲートウェイから直接来るので認証なし（署名で確認）
	e.POST("/payment/callback", h.callback)
	e.POST("/payment/webhook", h.webhook)
}

// 商品を直接買う
func (h *PaymentHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req PaymentCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.payments.CreateForProduct(c.Request().Context(), userID, usecase.CreatePaymentInput{
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
		AddressID: req.AddressID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 作成済み（PENDING）の注文を支払う
func (h *PaymentHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req PaymentCheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.payments.CreateForOrder(c.Request().Context(), userID, req.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) callback(c echo.Context) error {
	var form PaymentCallbackForm
	// 壊れたフォームでも失敗ページへ飛ばす
	_ = c.Bind(&form)

	to := h.payments.HandleCallback(c.Request().Context(), usecase.CallbackInput{
		ExternalOrderID: form.OrderID,
		PaymentID:       form.PaymentID,
		Signature:       form.Signature,
	})
	return c.Redirect(http.StatusFound, to)
}

// 署名不正でも200で受ける。DBエラーだけ500にして再送させる
func (h *PaymentHandler) webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "invalid body")
	}

	res, err := h.payments.HandleWebhook(c.Request().Context(), body, c.Request().Header.Get(webhookSignatureHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *PaymentHandler) orderStatus(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.orders.GetOrderStatus(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
