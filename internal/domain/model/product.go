package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 商品
// 金額はルピー単位の整数で持つ
type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"` // 作成時に一度だけ生成
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(100);not null;index" json:"category"`

	//定価
	MRP int64 `gorm:"column:mrp;not null" json:"mrp"`
	//販売価格（mrp以下）
	Price    int64 `gorm:"not null;index" json:"price"`
	Discount int   `gorm:"not null;default:0" json:"discount"`

	//レビューから再計算される
	Rating float64 `gorm:"not null;default:0" json:"rating"`

	Images   []string `gorm:"type:jsonb;serializer:json" json:"product_images"`
	TopPicks bool     `gorm:"not null;default:false;index" json:"top_picks"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 割引後価格 = mrp - mrp * discount / 100（小数2桁）
func (p Product) DiscountedPrice() decimal.Decimal {
	mrp := decimal.NewFromInt(p.MRP)
	off := mrp.Mul(decimal.NewFromInt(int64(p.Discount))).Div(decimal.NewFromInt(100))
	return mrp.Sub(off).Round(2)
}

// 先頭の画像（なければ空）
func (p Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
