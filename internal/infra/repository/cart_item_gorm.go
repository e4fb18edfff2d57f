package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

func (r *CartItemGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// チェックアウト中に他リクエストが明細を触れないようにロック
func (r *CartItemGormRepository) ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// INSERT ... ON CONFLICT (user_id, product_id, size) DO UPDATE quantity = quantity + excluded.quantity
// 加算後が上限を超えるなら更新せずErrQuantityLimit
func (r *CartItemGormRepository) Upsert(ctx context.Context, userID, productID int64, size string, addQty int64) (model.CartItem, error) {
	item := model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Size:      size,
		Quantity:  addQty,
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "size"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("now()"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("cart_items.quantity + excluded.quantity <= ?", model.MaxCartQuantity),
		}},
	}).Create(&item)
	if res.Error != nil {
		return model.CartItem{}, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.CartItem{}, repo.ErrQuantityLimit
	}

	//加算後の値を読み直す
	var saved model.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND size = ?", userID, productID, size).
		First(&saved).Error; err != nil {
		return model.CartItem{}, mapErr(err)
	}
	return saved, nil
}

func (r *CartItemGormRepository) FindByIDForUser(ctx context.Context, cartItemID, userID int64) (model.CartItem, error) {
	var it model.CartItem
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		First(&it).Error; err != nil {
		return model.CartItem{}, mapErr(err)
	}
	return it, nil
}

func (r *CartItemGormRepository) FindByIDForUpdate(ctx context.Context, cartItemID, userID int64) (model.CartItem, error) {
	var it model.CartItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		First(&it).Error; err != nil {
		return model.CartItem{}, mapErr(err)
	}
	return it, nil
}

func (r *CartItemGormRepository) FindByProductSizeForUpdate(ctx context.Context, userID, productID int64, size string) (model.CartItem, error) {
	var it model.CartItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND product_id = ? AND size = ?", userID, productID, size).
		First(&it).Error; err != nil {
		return model.CartItem{}, mapErr(err)
	}
	return it, nil
}

func (r *CartItemGormRepository) UpdateQuantity(ctx context.Context, cartItemID, qty int64) error {
	res := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartItemGormRepository) UpdateSize(ctx context.Context, cartItemID int64, size string) error {
	res := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("size", size)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartItemGormRepository) DeleteByID(ctx context.Context, cartItemID, userID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 注文に使った明細だけ消す
func (r *CartItemGormRepository) DeleteByIDs(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&model.CartItem{}).Error
}
