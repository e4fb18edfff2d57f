package repository

import (
	"context"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

// プロフィール部分更新。nilは変更しない
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Gender    *string
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成。携帯番号の重複はErrDuplicate
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//携帯番号からユーザーを一件取得する。
	FindByMobile(ctx context.Context, mobile string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, p ProfileUpdate) error
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
