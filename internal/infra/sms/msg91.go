package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Msg91Options struct {
	AuthKey    string
	FlowID     string
	SenderID   string
	BaseURL    string
	Timeout    time.Duration
	MaxElapsed time.Duration
}

// MSG91のFlow APIでOTPを送る
type Msg91Sender struct {
	opts   Msg91Options
	client *http.Client
	log    *zap.Logger
}

func NewMsg91Sender(opts Msg91Options, log *zap.Logger) *Msg91Sender {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.msg91.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 15 * time.Second
	}
	return &Msg91Sender{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    log.Named("msg91"),
	}
}

type flowRequest struct {
	FlowID  string `json:"flow_id"`
	Sender  string `json:"sender,omitempty"`
	Mobiles string `json:"mobiles"`
	OTP     string `json:"otp"`
}

// mobileは10桁。国番号91を付けて送る
func (s *Msg91Sender) Send(ctx context.Context, mobile, code string) error {
	body, err := json.Marshal(flowRequest{
		FlowID:  s.opts.FlowID,
		Sender:  s.opts.SenderID,
		Mobiles: "91" + mobile,
		OTP:     code,
	})
	if err != nil {
		return err
	}

	op := func() error { return s.sendOnce(ctx, body) }

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.opts.MaxElapsed

	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		s.log.Warn("sms send failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
}

func (s *Msg91Sender) sendOnce(ctx context.Context, body []byte) error {
	url := strings.TrimRight(s.opts.BaseURL, "/") + "/api/v5/flow/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("authkey", s.opts.AuthKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("msg91 status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("msg91 status %d", resp.StatusCode))
	}
	return nil
}

// 開発用。送らずにログへ出す
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("sms")}
}

func (s *LogSender) Send(ctx context.Context, mobile, code string) error {
	s.log.Info("otp (not sent)", zap.String("mobile", mobile), zap.String("otp", code))
	return nil
}
