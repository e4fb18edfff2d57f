package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

// 住所(Address)を保存・取得する窓口
type AddressRepository interface {
	//作成後はaddress（IDなどが埋まったもの）を返す
	Create(ctx context.Context, address model.Address) (model.Address, error)

	//ユーザーが持つ住所一覧を返す
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)

	//そのユーザーの住所を1件取得。他人のものはErrNotFound
	FindByIDForUser(ctx context.Context, addressID, userID int64) (model.Address, error)

	Update(ctx context.Context, address model.Address) error

	Delete(ctx context.Context, addressID, userID int64) error
}
