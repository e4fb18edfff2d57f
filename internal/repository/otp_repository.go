package repository

import (
	"context"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
)

type OTPRepository interface {
	// 未使用のOTPをすべて使用済みにする
	InvalidateUnused(ctx context.Context, mobile string) error
	Create(ctx context.Context, otp *model.OTP) error
	// 最新の未使用OTP。なければErrNotFound
	FindLatestUnused(ctx context.Context, mobile string) (model.OTP, error)
	// 未使用のときだけ使用済みにする。取れなければfalse
	Consume(ctx context.Context, otpID int64) (bool, error)
}
