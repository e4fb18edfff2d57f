package model

import "time"

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventConfirmed     OrderEventType = "order.confirmed"
	OrderEventPaymentFailed OrderEventType = "payment.failed"
)

// コミット後に外部へ流すイベント
type OrderEvent struct {
	ID         string         `json:"id"`
	Type       OrderEventType `json:"type"`
	OrderID    int64          `json:"order_id"`
	UserID     int64          `json:"user_id,omitempty"`
	Status     OrderStatus    `json:"status,omitempty"`
	PrevStatus OrderStatus    `json:"prev_status,omitempty"`
	Amount     int64          `json:"amount,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
