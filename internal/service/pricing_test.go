package service_test

import (
	"testing"
	"time"

	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/devsanbid/quickbite/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func line(price string, qty int32) service.QuoteLine {
	return service.QuoteLine{
		MenuItemID: uuid.New(),
		Name:       "item",
		Quantity:   qty,
		UnitPrice:  dec(price),
	}
}

func activeCoupon(typ, value string) *service.CouponRule {
	now := time.Now()
	return &service.CouponRule{
		Code:       "SAVE",
		Type:       typ,
		Value:      dec(value),
		UsageLimit: 100,
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(time.Hour),
		IsActive:   true,
	}
}

func TestComputeQuoteNoCoupon(t *testing.T) {
	lines := []service.QuoteLine{line("8.50", 2), line("4.00", 1)}

	q := service.ComputeQuote(lines, nil, dec("2.50"), time.Now())

	assert.True(t, q.Subtotal.Equal(dec("21.00")), "subtotal = %s", q.Subtotal)
	assert.True(t, q.DiscountAmount.IsZero())
	assert.True(t, q.Total.Equal(dec("23.50")), "total = %s", q.Total)
	require.Len(t, q.Lines, 2)
	assert.True(t, q.Lines[0].LineTotal.Equal(dec("17.00")))
}

func TestComputeQuoteRemovesNonPositiveQuantities(t *testing.T) {
	lines := []service.QuoteLine{line("10.00", 2), line("5.00", -1), line("3.00", 0)}

	q := service.ComputeQuote(lines, nil, dec("0.00"), time.Now())

	require.Len(t, q.Lines, 1)
	assert.True(t, q.Subtotal.Equal(dec("20.00")), "subtotal = %s", q.Subtotal)
	assert.True(t, q.Total.Equal(dec("20.00")), "total = %s", q.Total)
}

func TestComputeQuotePercentageCappedByMax(t *testing.T) {
	// 20% of 60.00 is 12.00, capped at 10.00.
	coupon := activeCoupon(enum.DiscountTypePercentage, "20")
	coupon.MinOrderAmount = dec("25.00")
	coupon.MaxDiscountAmount = dec("10.00")

	q := service.ComputeQuote([]service.QuoteLine{line("30.00", 2)}, coupon, dec("0.00"), time.Now())

	assert.False(t, q.CouponDropped)
	assert.True(t, q.DiscountAmount.Equal(dec("10.00")), "discount = %s", q.DiscountAmount)
	assert.True(t, q.Total.Equal(dec("50.00")), "total = %s", q.Total)
}

func TestComputeQuotePercentageUncapped(t *testing.T) {
	coupon := activeCoupon(enum.DiscountTypePercentage, "10")

	q := service.ComputeQuote([]service.QuoteLine{line("40.00", 1)}, coupon, dec("3.00"), time.Now())

	assert.True(t, q.DiscountAmount.Equal(dec("4.00")), "discount = %s", q.DiscountAmount)
	assert.True(t, q.Total.Equal(dec("39.00")), "total = %s", q.Total)
}

func TestComputeQuoteFixedClampedToSubtotal(t *testing.T) {
	coupon := activeCoupon(enum.DiscountTypeFixed, "50.00")

	q := service.ComputeQuote([]service.QuoteLine{line("12.00", 1)}, coupon, dec("2.00"), time.Now())

	assert.True(t, q.DiscountAmount.Equal(dec("12.00")), "discount = %s", q.DiscountAmount)
	// Delivery fee still applies after the subtotal is fully discounted.
	assert.True(t, q.Total.Equal(dec("2.00")), "total = %s", q.Total)
}

func TestComputeQuoteCouponDropReasons(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*service.CouponRule)
		reason string
	}{
		{
			name:   "inactive",
			mutate: func(c *service.CouponRule) { c.IsActive = false },
			reason: "coupon is inactive",
		},
		{
			name:   "not started",
			mutate: func(c *service.CouponRule) { c.StartsAt = now.Add(time.Hour) },
			reason: "coupon is not active yet",
		},
		{
			name:   "expired",
			mutate: func(c *service.CouponRule) { c.EndsAt = now.Add(-time.Minute) },
			reason: "coupon has expired",
		},
		{
			name:   "exhausted",
			mutate: func(c *service.CouponRule) { c.UsedCount = c.UsageLimit },
			reason: "coupon usage limit reached",
		},
		{
			name:   "below minimum",
			mutate: func(c *service.CouponRule) { c.MinOrderAmount = dec("100.00") },
			reason: "subtotal is below the coupon minimum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coupon := activeCoupon(enum.DiscountTypePercentage, "10")
			tt.mutate(coupon)

			q := service.ComputeQuote([]service.QuoteLine{line("20.00", 1)}, coupon, dec("2.00"), now)

			assert.True(t, q.CouponDropped)
			assert.Equal(t, tt.reason, q.DropReason)
			// The quote still computes without the discount.
			assert.True(t, q.DiscountAmount.IsZero())
			assert.True(t, q.Total.Equal(dec("22.00")), "total = %s", q.Total)
		})
	}
}

func TestComputeQuoteEmptyLines(t *testing.T) {
	q := service.ComputeQuote(nil, nil, dec("2.50"), time.Now())

	assert.True(t, q.Subtotal.IsZero())
	assert.True(t, q.Total.Equal(dec("2.50")))
	assert.Empty(t, q.Lines)
}
