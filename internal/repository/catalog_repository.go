package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

type BannerRepository interface {
	List(ctx context.Context) ([]model.Banner, error)
	Create(ctx context.Context, b model.Banner) (model.Banner, error)
}

type CarouselRepository interface {
	List(ctx context.Context) ([]model.Carousel, error)
	Create(ctx context.Context, c model.Carousel) (model.Carousel, error)
}
