package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"

	"gorm.io/gorm"
)

type OTPGormRepository struct {
	db *gorm.DB
}

func NewOTPGormRepository(db *gorm.DB) *OTPGormRepository {
	return &OTPGormRepository{db: db}
}

func (r *OTPGormRepository) InvalidateUnused(ctx context.Context, mobile string) error {
	return r.db.WithContext(ctx).Model(&model.OTP{}).
		Where("mobile = ? AND is_used = ?", mobile, false).
		Update("is_used", true).Error
}

func (r *OTPGormRepository) Create(ctx context.Context, otp *model.OTP) error {
	return r.db.WithContext(ctx).Create(otp).Error
}

func (r *OTPGormRepository) FindLatestUnused(ctx context.Context, mobile string) (model.OTP, error) {
	var o model.OTP
	if err := r.db.WithContext(ctx).
		Where("mobile = ? AND is_used = ?", mobile, false).
		Order("created_at desc").Order("id desc").
		First(&o).Error; err != nil {
		return model.OTP{}, mapErr(err)
	}
	return o, nil
}

// 使用済みへの条件付き更新。同時に検証されたら片方だけtrue
func (r *OTPGormRepository) Consume(ctx context.Context, otpID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.OTP{}).
		Where("id = ? AND is_used = ?", otpID, false).
		Update("is_used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
