package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type deliveryPincodeGormRepository struct {
	db *gorm.DB
}

func NewDeliveryPincodeGormRepository(db *gorm.DB) repo.DeliveryPincodeRepository {
	return &deliveryPincodeGormRepository{db: db}
}

func (r *deliveryPincodeGormRepository) FindByPincode(ctx context.Context, pincode string) (model.DeliveryPincode, error) {
	var p model.DeliveryPincode
	if err := r.db.WithContext(ctx).Where("pincode = ?", pincode).First(&p).Error; err != nil {
		return model.DeliveryPincode{}, mapErr(err)
	}
	return p, nil
}

// INSERT ... ON CONFLICT (pincode) DO NOTHING
// is_active=false がdefaultで上書きされないよう列を指定する
func (r *deliveryPincodeGormRepository) CreateIfNotExists(ctx context.Context, p model.DeliveryPincode) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "pincode"}}, DoNothing: true}).
		Select("pincode", "city", "state", "is_active").
		Create(&p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
