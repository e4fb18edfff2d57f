package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_IsValid(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, s.IsValid(), s)
	}

	assert.False(t, OrderStatus("Pending").IsValid())
	assert.False(t, OrderStatus("PAID").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusOutForDelivery, true},
		{OrderStatusOutForDelivery, OrderStatusDelivered, true},
		{OrderStatusOutForDelivery, OrderStatusCancelled, true},

		// 後退は不可
		{OrderStatusShipped, OrderStatusConfirmed, false},
		{OrderStatusConfirmed, OrderStatusPending, false},
		// 終端
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		// 同じ
		{OrderStatusShipped, OrderStatusShipped, false},
		// 不正値
		{OrderStatusPending, OrderStatus("PAID"), false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestProduct_DiscountedPrice(t *testing.T) {
	p := Product{MRP: 999, Discount: 15}
	assert.Equal(t, "849.15", p.DiscountedPrice().StringFixed(2))

	p = Product{MRP: 500, Discount: 0}
	assert.Equal(t, "500.00", p.DiscountedPrice().StringFixed(2))
}

func TestProduct_MainImage(t *testing.T) {
	assert.Equal(t, "", Product{}.MainImage())
	assert.Equal(t, "a.jpg", Product{Images: []string{"a.jpg", "b.jpg"}}.MainImage())
}
