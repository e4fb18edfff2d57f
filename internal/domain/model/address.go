package model

import "time"

type AddressType string

const (
	AddressTypeHome  AddressType = "Home"
	AddressTypeWork  AddressType = "Work"
	AddressTypeOther AddressType = "Other"
)

// 配送先住所
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//宛名
	Name   string `gorm:"type:varchar(100);not null" json:"name"`
	Mobile string `gorm:"type:varchar(10);not null" json:"mobile"`

	//6桁
	Pincode string `gorm:"type:varchar(6);not null" json:"pincode"`
	State   string `gorm:"type:varchar(100);not null" json:"state"`
	City    string `gorm:"type:varchar(100);not null" json:"city"`

	HouseNo string `gorm:"type:varchar(255);not null" json:"house_no"`
	Area    string `gorm:"type:varchar(255);not null" json:"area"`

	AddressType AddressType `gorm:"type:varchar(10);not null;default:'Home'" json:"address_type"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
