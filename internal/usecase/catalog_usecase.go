package usecase

import (
	"context"
	"net/http"
	"strings"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"
)

// バナーとカルーセル
type CatalogUsecase struct {
	banners   repo.BannerRepository
	carousels repo.CarouselRepository
}

func NewCatalogUsecase(banners repo.BannerRepository, carousels repo.CarouselRepository) *CatalogUsecase {
	return &CatalogUsecase{banners: banners, carousels: carousels}
}

func (u *CatalogUsecase) ListBanners(ctx context.Context) ([]model.Banner, error) {
	bs, err := u.banners.List(ctx)
	if err != nil {
		return nil, errDB()
	}
	if bs == nil {
		bs = []model.Banner{}
	}
	return bs, nil
}

func (u *CatalogUsecase) CreateBanner(ctx context.Context, name, imageURL string) (model.Banner, error) {
	name = strings.TrimSpace(name)
	imageURL = strings.TrimSpace(imageURL)
	if name == "" {
		return model.Banner{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if imageURL == "" {
		return model.Banner{}, NewHTTPError(http.StatusBadRequest, "banner_image required")
	}

	b, err := u.banners.Create(ctx, model.Banner{Name: name, BannerImage: imageURL})
	if err != nil {
		return model.Banner{}, errDB()
	}
	return b, nil
}

func (u *CatalogUsecase) ListCarousels(ctx context.Context) ([]model.Carousel, error) {
	cs, err := u.carousels.List(ctx)
	if err != nil {
		return nil, errDB()
	}
	if cs == nil {
		cs = []model.Carousel{}
	}
	return cs, nil
}

func (u *CatalogUsecase) CreateCarousel(ctx context.Context, name, desktopImage, mobileImage string) (model.Carousel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Carousel{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(desktopImage) == "" || strings.TrimSpace(mobileImage) == "" {
		return model.Carousel{}, NewHTTPError(http.StatusBadRequest, "desktop_image and mobile_image required")
	}

	c, err := u.carousels.Create(ctx, model.Carousel{
		Name:         name,
		DesktopImage: strings.TrimSpace(desktopImage),
		MobileImage:  strings.TrimSpace(mobileImage),
	})
	if err != nil {
		return model.Carousel{}, errDB()
	}
	return c, nil
}
