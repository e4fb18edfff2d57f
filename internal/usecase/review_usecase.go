package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ReviewUsecase struct {
	tx       repo.TransactionManager
	reviews  repo.ReviewRepository
	products repo.ProductRepository
	log      *zap.Logger
}

func NewReviewUsecase(tx repo.TransactionManager, reviews repo.ReviewRepository, products repo.ProductRepository, log *zap.Logger) *ReviewUsecase {
	return &ReviewUsecase{tx: tx, reviews: reviews, products: products, log: log.Named("review")}
}

type ReviewInput struct {
	Rating  int
	Comment string
}

type ReviewListOutput struct {
	Items  []model.Review `json:"items"`
	Rating float64        `json:"rating"`
	Count  int            `json:"count"`
}

const maxCommentLen = 2000

// 購入済み（DELIVERED）のユーザーだけレビューできる
func (u *ReviewUsecase) AddOrUpdate(ctx context.Context, userID, productID int64, in ReviewInput) (model.Review, error) {
	if userID <= 0 {
		return model.Review{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > maxCommentLen {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "comment too long")
	}

	var saved model.Review
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return errDB()
		}

		bought, err := r.Orders().HasDeliveredProduct(ctx, userID, productID)
		if err != nil {
			return errDB()
		}
		if !bought {
			return NewHTTPError(http.StatusForbidden, "only customers who received this product can review it")
		}

		saved, err = r.Reviews().Upsert(ctx, model.Review{
			UserID:    userID,
			ProductID: productID,
			Rating:    in.Rating,
			Comment:   comment,
		})
		if err != nil {
			return errDB()
		}

		return recalculateRating(ctx, r, productID)
	})
	if err != nil {
		return model.Review{}, err
	}
	return saved, nil
}

func (u *ReviewUsecase) ListForProduct(ctx context.Context, productID int64) (ReviewListOutput, error) {
	if productID <= 0 {
		return ReviewListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return ReviewListOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return ReviewListOutput{}, errDB()
	}

	items, err := u.reviews.ListByProductID(ctx, productID)
	if err != nil {
		return ReviewListOutput{}, errDB()
	}
	if items == nil {
		items = []model.Review{}
	}
	return ReviewListOutput{Items: items, Rating: p.Rating, Count: len(items)}, nil
}

// 本人か管理者だけ削除できる
func (u *ReviewUsecase) Delete(ctx context.Context, userID int64, role model.Role, reviewID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if reviewID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rv, err := r.Reviews().FindByID(ctx, reviewID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB()
		}
		if rv.UserID != userID && role != model.RoleAdmin {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		if err := r.Reviews().Delete(ctx, reviewID); err != nil {
			return errDB()
		}
		return recalculateRating(ctx, r, rv.ProductID)
	})
}

// 平均を小数1桁に丸めて商品に保存する。レビューがなければ0
func recalculateRating(ctx context.Context, r repo.TxRepos, productID int64) error {
	avg, count, err := r.Reviews().RatingStats(ctx, productID)
	if err != nil {
		return errDB()
	}

	rating := 0.0
	if count > 0 {
		rating = decimal.NewFromFloat(avg).Round(1).InexactFloat64()
	}
	if err := r.Products().UpdateRating(ctx, productID, rating); err != nil {
		return errDB()
	}
	return nil
}
