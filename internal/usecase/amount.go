package usecase

import (
	"fmt"
	"math"
	"net/http"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"

	"github.com/shopspring/decimal"
)

// パイサに直してもint64に収まる金額（ルピー）
const maxOrderAmount = math.MaxInt64 / 100

func errQuantityTooLarge() error {
	return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("quantity must be at most %d", model.MaxCartQuantity))
}

func errAmountTooLarge() error {
	return NewHTTPError(http.StatusBadRequest, "order amount too large")
}

// 0以下は1扱い。上限超えは400
func clampQuantity(q int64) (int64, error) {
	if q < 1 {
		return 1, nil
	}
	if q > model.MaxCartQuantity {
		return 0, errQuantityTooLarge()
	}
	return q, nil
}

// Σ price × quantity。int64で溢れる前にdecimalで判定する
func orderTotal(items []model.OrderItem) (int64, error) {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromInt(it.Price).Mul(decimal.NewFromInt(it.Quantity)))
	}
	if total.IsNegative() || total.GreaterThan(decimal.NewFromInt(maxOrderAmount)) {
		return 0, errAmountTooLarge()
	}
	return total.IntPart(), nil
}

// ルピー -> パイサ
func toMinorUnits(rupees int64) (int64, error) {
	if rupees < 0 || rupees > maxOrderAmount {
		return 0, errAmountTooLarge()
	}
	return rupees * 100, nil
}
