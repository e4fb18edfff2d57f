package model

import "time"

// トップページのバナー
type Banner struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	BannerImage string    `gorm:"type:text;not null" json:"banner_image"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// カルーセル（PC用とスマホ用の画像を持つ）
type Carousel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	DesktopImage string    `gorm:"type:text;not null" json:"desktop_image"`
	MobileImage  string    `gorm:"type:text;not null" json:"mobile_image"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
