package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

type DeliveryPincodeRepository interface {
	FindByPincode(ctx context.Context, pincode string) (model.DeliveryPincode, error)
	// 既にあれば何もしない。作成したらtrue
	CreateIfNotExists(ctx context.Context, p model.DeliveryPincode) (bool, error)
}
