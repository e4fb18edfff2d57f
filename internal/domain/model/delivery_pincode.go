package model

// 配送可能なピンコード
type DeliveryPincode struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Pincode  string `gorm:"type:varchar(6);not null;uniqueIndex" json:"pincode"`
	City     string `gorm:"type:varchar(100)" json:"city"`
	State    string `gorm:"type:varchar(100)" json:"state"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}
