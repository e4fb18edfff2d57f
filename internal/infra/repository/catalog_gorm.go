package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"gorm.io/gorm"
)

type bannerGormRepository struct {
	db *gorm.DB
}

func NewBannerGormRepository(db *gorm.DB) repo.BannerRepository {
	return &bannerGormRepository{db: db}
}

func (r *bannerGormRepository) List(ctx context.Context) ([]model.Banner, error) {
	var list []model.Banner
	if err := r.db.WithContext(ctx).Order("id desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *bannerGormRepository) Create(ctx context.Context, b model.Banner) (model.Banner, error) {
	if err := r.db.WithContext(ctx).Create(&b).Error; err != nil {
		return model.Banner{}, err
	}
	return b, nil
}

type carouselGormRepository struct {
	db *gorm.DB
}

func NewCarouselGormRepository(db *gorm.DB) repo.CarouselRepository {
	return &carouselGormRepository{db: db}
}

func (r *carouselGormRepository) List(ctx context.Context) ([]model.Carousel, error) {
	var list []model.Carousel
	if err := r.db.WithContext(ctx).Order("id desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *carouselGormRepository) Create(ctx context.Context, c model.Carousel) (model.Carousel, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Carousel{}, err
	}
	return c, nil
}
