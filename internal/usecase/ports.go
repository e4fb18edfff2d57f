package usecase

import (
	"context"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 注文イベントの送信先（Kafkaなど）
type EventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

// 決済ゲートウェイ
type PaymentGateway interface {
	KeyID() string
	// amountは最小単位（paise）。外部注文IDを返す
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
	VerifyPaymentSignature(externalOrderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

type SMSSender interface {
	Send(ctx context.Context, mobile, code string) error
}

// アクセストークン発行。トークンと有効秒数を返す
type TokenIssuer interface {
	Issue(user *model.User) (string, int, error)
}

// コミット後に呼ぶ。失敗はログだけ
func publishEvent(ctx context.Context, pub EventPublisher, log *zap.Logger, ev model.OrderEvent) {
	if pub == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn("publish order event failed",
			zap.Error(err),
			zap.String("type", string(ev.Type)),
			zap.Int64("order_id", ev.OrderID))
	}
}
