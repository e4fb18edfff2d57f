package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// 携帯番号がログインID
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Mobile       string     `gorm:"type:varchar(10);uniqueIndex;not null" json:"mobile"`
	FirstName    string     `gorm:"type:varchar(100)" json:"first_name"`
	LastName     string     `gorm:"type:varchar(100)" json:"last_name"`
	Email        string     `gorm:"type:varchar(255)" json:"email"`
	Gender       string     `gorm:"type:varchar(10)" json:"gender"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion int        `gorm:"not null;default:0" json:"token_version"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
