package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

type ReviewRepository interface {
	// (user, product)が既にあれば rating/comment を上書き
	Upsert(ctx context.Context, r model.Review) (model.Review, error)
	FindByID(ctx context.Context, id int64) (model.Review, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.Review, error)
	Delete(ctx context.Context, id int64) error
	// 平均と件数
	RatingStats(ctx context.Context, productID int64) (avg float64, count int64, err error)
}
