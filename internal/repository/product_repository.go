package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	TopPicks *bool
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)
	// 削除済みは含まない。見つからないIDは結果に入らない
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)

	// base と base-N の既存slugを返す（削除済みも含む）
	ListSlugsWithPrefix(ctx context.Context, base string) ([]string, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	UpdateRating(ctx context.Context, id int64, rating float64) error
}
