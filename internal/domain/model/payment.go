package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated PaymentStatus = "CREATED"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// 決済。注文と1対1
// CREATED -> PAID / FAILED の一方向のみ
type Payment struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;uniqueIndex" json:"order_id"`

	//ゲートウェイ側の注文ID
	ExternalOrderID   string `gorm:"type:varchar(100);not null;uniqueIndex" json:"external_order_id"`
	ExternalPaymentID string `gorm:"type:varchar(100)" json:"external_payment_id"`
	ExternalSignature string `gorm:"type:varchar(255)" json:"-"`

	//最小通貨単位（パイサ）
	Amount   int64         `gorm:"not null" json:"amount"`
	Currency string        `gorm:"type:varchar(10);not null" json:"currency"`
	Status   PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
