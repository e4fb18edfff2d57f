package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

type PaymentRepository interface {
	// order_id / external_order_id の重複はErrDuplicate
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error)
	FindByExternalOrderID(ctx context.Context, externalOrderID string) (model.Payment, error)

	// CREATEDのときだけPAIDにする。すでにPAID/FAILEDならfalse
	MarkPaidIfCreated(ctx context.Context, externalOrderID, paymentID, signature string) (bool, error)
	// CREATEDのときだけFAILEDにする
	MarkFailedIfCreated(ctx context.Context, externalOrderID, paymentID string) (bool, error)
}
