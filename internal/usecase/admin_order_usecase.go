package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	events EventPublisher
	log    *zap.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, events EventPublisher, log *zap.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, events: events, log: log.Named("admin_order")}
}

type AdminUpdateOrderStatusInput struct {
	OrderID int64
	Status  string
}

type AdminOrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).IsValid() {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}

	out := AdminOrderListOutput{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return errDB()
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return errDB()
			}
			out.Items = append(out.Items, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

// ステータス更新。遷移表にない変更は409
// 同じステータスなら何もしない（changed=false）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, in AdminUpdateOrderStatusInput) (OrderStatusOutput, bool, error) {
	if actorAdminUserID <= 0 {
		return OrderStatusOutput{}, false, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return OrderStatusOutput{}, false, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}

	next := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !next.IsValid() {
		return OrderStatusOutput{}, false, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		prev    model.OrderStatus
		userID  int64
		changed bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 行ロックして取得
		o, err := r.Orders().FindByIDForUpdate(ctx, in.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB()
		}
		prev = o.Status
		userID = o.UserID

		// すでに同じなら何もしない（200）
		if o.Status == next {
			return nil
		}
		if !o.Status.CanTransitionTo(next) {
			return NewHTTPError(http.StatusConflict, "invalid status transition")
		}

		if err := r.Orders().UpdateStatus(ctx, in.OrderID, next); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return errDB()
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + string(prev) + `"}`
		afterJSON := `{"status":"` + string(next) + `"}`
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   in.OrderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return errDB()
		}

		changed = true
		return nil
	})
	if err != nil {
		return OrderStatusOutput{}, false, err
	}

	if changed {
		u.log.Info("order status updated",
			zap.Int64("order_id", in.OrderID),
			zap.String("from", string(prev)),
			zap.String("to", string(next)),
			zap.Int64("admin_id", actorAdminUserID))
		publishEvent(ctx, u.events, u.log, model.OrderEvent{
			Type:       model.OrderEventStatusChanged,
			OrderID:    in.OrderID,
			UserID:     userID,
			Status:     next,
			PrevStatus: prev,
		})
	}
	return OrderStatusOutput{OrderID: in.OrderID, Status: string(next)}, changed, nil
}

// 期間パラメータ。空ならnil、形式不正ならok=false
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
