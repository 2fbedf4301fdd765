package service

import (
	"time"

	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteLine is a single priced cart line.
type QuoteLine struct {
	MenuItemID uuid.UUID
	Name       string
	Quantity   int32
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

// CouponRule is the discount definition a quote is evaluated against.
type CouponRule struct {
	Code              string
	Type              string
	Value             decimal.Decimal
	MinOrderAmount    decimal.Decimal
	MaxDiscountAmount decimal.Decimal
	UsageLimit        int32
	UsedCount         int32
	StartsAt          time.Time
	EndsAt            time.Time
	IsActive          bool
}

// Quote is a fully computed cart price. A coupon that turned out to be
// ineligible does not fail the quote; it is dropped and reported.
type Quote struct {
	Lines          []QuoteLine
	Subtotal       decimal.Decimal
	CouponCode     string
	CouponDropped  bool
	DropReason     string
	DiscountAmount decimal.Decimal
	DeliveryFee    decimal.Decimal
	Total          decimal.Decimal
}

// ComputeQuote prices the given lines, applies the coupon when eligible,
// then adds the delivery fee. Lines with a non-positive quantity are
// removed. A nil coupon means no code was entered; a non-nil coupon that
// fails an eligibility rule is dropped with a reason.
func ComputeQuote(lines []QuoteLine, coupon *CouponRule, deliveryFee decimal.Decimal, now time.Time) Quote {
	q := Quote{
		Lines:       make([]QuoteLine, 0, len(lines)),
		DeliveryFee: deliveryFee,
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
		q.Lines = append(q.Lines, l)
		subtotal = subtotal.Add(l.LineTotal)
	}
	q.Subtotal = subtotal

	discount := decimal.Zero
	if coupon != nil {
		q.CouponCode = coupon.Code
		if reason := couponIneligible(coupon, subtotal, now); reason != "" {
			q.CouponDropped = true
			q.DropReason = reason
		} else {
			discount = couponAmount(coupon, subtotal)
		}
	}
	q.DiscountAmount = discount

	total := subtotal.Sub(discount).Add(deliveryFee)
	if total.IsNegative() {
		total = decimal.Zero
	}
	q.Total = total
	return q
}

// couponIneligible returns a human-readable reason, or "" when the coupon applies.
func couponIneligible(c *CouponRule, subtotal decimal.Decimal, now time.Time) string {
	switch {
	case !c.IsActive:
		return "coupon is inactive"
	case now.Before(c.StartsAt):
		return "coupon is not active yet"
	case !now.Before(c.EndsAt):
		return "coupon has expired"
	case c.UsedCount >= c.UsageLimit:
		return "coupon usage limit reached"
	case subtotal.LessThan(c.MinOrderAmount):
		return "subtotal is below the coupon minimum"
	}
	return ""
}

// couponAmount computes the discount for an eligible coupon.
// Percentage discounts are capped by max_discount_amount when it is set;
// fixed discounts never exceed the subtotal.
func couponAmount(c *CouponRule, subtotal decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case enum.DiscountTypePercentage:
		amount := subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
		if c.MaxDiscountAmount.IsPositive() && amount.GreaterThan(c.MaxDiscountAmount) {
			amount = c.MaxDiscountAmount
		}
		return amount
	case enum.DiscountTypeFixed:
		if c.Value.GreaterThan(subtotal) {
			return subtotal
		}
		return c.Value
	}
	return decimal.Zero
}
