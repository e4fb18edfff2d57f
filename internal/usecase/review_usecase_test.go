package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reviewFixture struct {
	tx       *TxManagerMock
	orders   *OrderRepoMock
	products *ProductRepoMock
	reviews  *ReviewRepoMock
	uc       *usecase.ReviewUsecase
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		orders:   new(OrderRepoMock),
		products: new(ProductRepoMock),
		reviews:  new(ReviewRepoMock),
	}
	f.tx = &TxManagerMock{Repos: &TxReposMock{orders: f.orders, products: f.products, reviews: f.reviews}}
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.uc = usecase.NewReviewUsecase(f.tx, f.reviews, f.products, zap.NewNop())
	return f
}

func TestReviewUsecase_AddOrUpdate_RecalculatesRating(t *testing.T) {
	f := newReviewFixture()
	f.products.On("FindByID", mock.Anything, int64(3)).Return(model.Product{ID: 3}, nil)
	f.orders.On("HasDeliveredProduct", mock.Anything, int64(7), int64(3)).Return(true, nil)
	f.reviews.On("Upsert", mock.Anything, mock.MatchedBy(func(r model.Review) bool {
		return r.UserID == 7 && r.ProductID == 3 && r.Rating == 4 && r.Comment == "nice"
	})).Return(model.Review{ID: 1, UserID: 7, ProductID: 3, Rating: 4, Comment: "nice"}, nil)
	// (5+4+4+4)/4 = 4.25 -> 4.3
	f.reviews.On("RatingStats", mock.Anything, int64(3)).Return(4.25, int64(4), nil)
	f.products.On("UpdateRating", mock.Anything, int64(3), 4.3).Return(nil)

	rv, err := f.uc.AddOrUpdate(context.Background(), 7, 3, usecase.ReviewInput{Rating: 4, Comment: " nice "})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rv.ID)
	f.products.AssertExpectations(t)
}

func TestReviewUsecase_AddOrUpdate_RequiresDeliveredOrder(t *testing.T) {
	f := newReviewFixture()
	f.products.On("FindByID", mock.Anything, int64(3)).Return(model.Product{ID: 3}, nil)
	f.orders.On("HasDeliveredProduct", mock.Anything, int64(7), int64(3)).Return(false, nil)

	_, err := f.uc.AddOrUpdate(context.Background(), 7, 3, usecase.ReviewInput{Rating: 5})
	assertHTTPError(t, err, http.StatusForbidden, "received this product")
	f.reviews.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestReviewUsecase_AddOrUpdate_InvalidRating(t *testing.T) {
	f := newReviewFixture()

	for _, r := range []int{0, 6} {
		_, err := f.uc.AddOrUpdate(context.Background(), 7, 3, usecase.ReviewInput{Rating: r})
		assertHTTPError(t, err, http.StatusBadRequest, "rating must be between 1 and 5")
	}
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestReviewUsecase_Delete_OwnerOrAdmin(t *testing.T) {
	f := newReviewFixture()
	f.reviews.On("FindByID", mock.Anything, int64(1)).Return(model.Review{ID: 1, UserID: 7, ProductID: 3}, nil)

	// 他人
	err := f.uc.Delete(context.Background(), 8, model.RoleUser, 1)
	assertHTTPError(t, err, http.StatusForbidden, "forbidden")

	// 管理者。最後の1件なので0に戻る
	f.reviews.On("Delete", mock.Anything, int64(1)).Return(nil)
	f.reviews.On("RatingStats", mock.Anything, int64(3)).Return(0.0, int64(0), nil)
	f.products.On("UpdateRating", mock.Anything, int64(3), 0.0).Return(nil)

	require.NoError(t, f.uc.Delete(context.Background(), 99, model.RoleAdmin, 1))
	f.reviews.AssertNumberOfCalls(t, "Delete", 1)
	f.products.AssertExpectations(t)
}

func TestReviewUsecase_ListForProduct(t *testing.T) {
	f := newReviewFixture()
	f.products.On("FindByID", mock.Anything, int64(3)).Return(model.Product{ID: 3, Rating: 4.5}, nil)
	f.reviews.On("ListByProductID", mock.Anything, int64(3)).Return(nil, nil)

	out, err := f.uc.ListForProduct(context.Background(), 3)
	require.NoError(t, err)
	assert.NotNil(t, out.Items)
	assert.Equal(t, 0, out.Count)
	assert.Equal(t, 4.5, out.Rating)

	f.products.On("FindByID", mock.Anything, int64(4)).Return(model.Product{}, repo.ErrNotFound)
	_, err = f.uc.ListForProduct(context.Background(), 4)
	assertHTTPError(t, err, http.StatusNotFound, "product not found")
}
