package model

import "time"

// ワンタイムパスワード
// コードはbcryptハッシュで保存する
type OTP struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Mobile    string    `gorm:"type:varchar(10);not null;index"`
	CodeHash  string    `gorm:"not null"`
	IsUsed    bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (o OTP) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(o.CreatedAt) > ttl
}
