package repository

import (
	"context"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	domainrepo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	return mapErr(r.db.WithContext(ctx).Create(user).Error)
}

// 携帯番号でユーザーを1件取得
func (r *userGormRepository) FindByMobile(ctx context.Context, mobile string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("mobile = ?", mobile).First(&u).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// 指定された項目だけ更新
func (r *userGormRepository) UpdateProfile(ctx context.Context, userID int64, p domainrepo.ProfileUpdate) error {
	updates := map[string]interface{}{}
	if p.FirstName != nil {
		updates["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		updates["last_name"] = *p.LastName
	}
	if p.Email != nil {
		updates["email"] = *p.Email
	}
	if p.Gender != nil {
		updates["gender"] = *p.Gender
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}

func (r *userGormRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login_at", at).Error
}

// token_versionを+1 します。
func (r *userGormRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))

	if res.Error != nil {
		return res.Error
	}

	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}
