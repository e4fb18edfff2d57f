package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"

	"gorm.io/gorm"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Payment{}, mapErr(err)
	}
	return p, nil
}

func (r *PaymentGormRepository) FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return model.Payment{}, mapErr(err)
	}
	return p, nil
}

func (r *PaymentGormRepository) FindByExternalOrderID(ctx context.Context, externalOrderID string) (model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).
		Where("external_order_id = ?", externalOrderID).
		First(&p).Error; err != nil {
		return model.Payment{}, mapErr(err)
	}
	return p, nil
}

// UPDATE payments SET status='PAID' ... WHERE external_order_id=? AND status='CREATED'
func (r *PaymentGormRepository) MarkPaidIfCreated(ctx context.Context, externalOrderID, paymentID, signature string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("external_order_id = ? AND status = ?", externalOrderID, model.PaymentStatusCreated).
		Updates(map[string]interface{}{
			"status":              model.PaymentStatusPaid,
			"external_payment_id": paymentID,
			"external_signature":  signature,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentGormRepository) MarkFailedIfCreated(ctx context.Context, externalOrderID, paymentID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("external_order_id = ? AND status = ?", externalOrderID, model.PaymentStatusCreated).
		Updates(map[string]interface{}{
			"status":              model.PaymentStatusFailed,
			"external_payment_id": paymentID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
