package model

import "time"

// 商品レビュー。1ユーザー1商品につき1件
type Review struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_reviews_user_product,priority:1" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:ux_reviews_user_product,priority:2;index" json:"product_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
