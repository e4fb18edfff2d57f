package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// リトライしても作れなかった
var ErrUnavailable = errors.New("payment gateway unavailable")

type Options struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	// 1回のリクエストのタイムアウト
	Timeout time.Duration
	// リトライ全体の上限
	MaxElapsed time.Duration
}

// Razorpayの注文作成と署名検証
type RazorpayClient struct {
	opts   Options
	client *http.Client
	log    *zap.Logger
}

func NewRazorpayClient(opts Options, log *zap.Logger) *RazorpayClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.razorpay.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 15 * time.Second
	}
	return &RazorpayClient{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    log.Named("razorpay"),
	}
}

func (c *RazorpayClient) KeyID() string {
	return c.opts.KeyID
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// POST /v1/orders
// amountは最小通貨単位。5xxと通信エラーは指数バックオフでリトライ、4xxは即失敗
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	body, err := json.Marshal(createOrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return "", err
	}

	var orderID string
	op := func() error {
		id, err := c.createOrderOnce(ctx, body)
		if err != nil {
			return err
		}
		orderID = id
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.opts.MaxElapsed

	notify := func(err error, wait time.Duration) {
		c.log.Warn("create order failed, retrying",
			zap.String("receipt", receipt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return orderID, nil
}

func (c *RazorpayClient) createOrderOnce(ctx context.Context, body []byte) (string, error) {
	url := strings.TrimRight(c.opts.BaseURL, "/") + "/v1/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.SetBasicAuth(c.opts.KeyID, c.opts.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("razorpay status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		return "", backoff.Permanent(fmt.Errorf("razorpay status %d: %s", resp.StatusCode, er.Error.Description))
	}

	var out orderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", backoff.Permanent(fmt.Errorf("parse razorpay response: %w", err))
	}
	if out.ID == "" {
		return "", backoff.Permanent(errors.New("razorpay returned empty order id"))
	}
	return out.ID, nil
}

// コールバック署名: HMAC-SHA256(key_secret, order_id|payment_id) の16進
func (c *RazorpayClient) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHex(c.opts.KeySecret, []byte(orderID+"|"+paymentID), signature)
}

// Webhook署名: HMAC-SHA256(webhook_secret, 生のbody)
func (c *RazorpayClient) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHex(c.opts.WebhookSecret, body, signature)
}

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHex(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
