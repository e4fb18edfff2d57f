package model

import "time"

// 1明細あたりの数量上限
const MaxCartQuantity = 100

// カートの明細
// (user_id, product_id, size)で一意。価格は持たず、表示時に商品の現在価格を使う
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_cart_items_user_product_size,priority:1" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:ux_cart_items_user_product_size,priority:2" json:"product_id"`
	Size      string    `gorm:"type:varchar(20);not null;default:'';uniqueIndex:ux_cart_items_user_product_size,priority:3" json:"size"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
