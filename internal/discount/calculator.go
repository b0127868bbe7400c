// Package discount applies percentage coupons to single prices and price
// ranges. Nothing in this package returns an error: a missing, inactive or
// expired coupon is reported through IsDiscounted.
package discount

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/internal/pricing"
)

var hundred = decimal.NewFromInt(100)

// Calculator computes discount results. The zero value is not usable; use New.
type Calculator struct {
	now      func() time.Time
	currency string
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCurrency sets the symbol used to format savings for numeric prices.
func WithCurrency(currency string) Option {
	return func(c *Calculator) {
		if currency != "" {
			c.currency = currency
		}
	}
}

// New creates a Calculator using the wall clock and the default currency.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		now:      time.Now,
		currency: pricing.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Currency returns the symbol used for numeric prices.
func (c *Calculator) Currency() string {
	return c.currency
}

// Applicable reports whether coupon can discount a price right now.
// Only active, unexpired percentage coupons apply.
func (c *Calculator) Applicable(coupon *model.Coupon) bool {
	if coupon == nil || !coupon.IsActive || coupon.IsExpired(c.now()) {
		return false
	}
	return coupon.Type == "" || coupon.Type == model.CouponTypePercentage
}

// ApplyCouponDiscount applies coupon to a numeric price.
func (c *Calculator) ApplyCouponDiscount(price float64, coupon *model.Coupon) model.DiscountCalculationResult {
	return c.apply(price, c.currency, coupon)
}

// ApplyCouponDiscountText applies coupon to a formatted price such as "₹300.00".
// Savings are rendered in the currency detected in text.
func (c *Calculator) ApplyCouponDiscountText(text string, coupon *model.Coupon) model.DiscountCalculationResult {
	return c.apply(pricing.ExtractSinglePrice(text), pricing.DetectCurrency(text), coupon)
}

// ApplyCouponDiscountToRange parses rangeText and discounts each endpoint
// independently, so a MaxDiscount cap is applied per endpoint. Without an
// applicable coupon the discounted range equals the original one.
func (c *Calculator) ApplyCouponDiscountToRange(rangeText string, coupon *model.Coupon) model.DiscountedPriceRange {
	original := pricing.ExtractPriceRange(rangeText)
	result := model.DiscountedPriceRange{
		Original:   original,
		Discounted: original,
	}
	if !c.Applicable(coupon) {
		return result
	}

	low := c.apply(original.Min, original.Currency, coupon)
	high := c.apply(original.Max, original.Currency, coupon)

	result.Discounted = model.PriceRange{
		Min:      low.DiscountedPrice,
		Max:      high.DiscountedPrice,
		Currency: original.Currency,
	}
	result.Discount = model.RangeDiscount{
		Percent:    effectivePercent(coupon),
		MinSavings: low.DiscountAmount,
		MaxSavings: high.DiscountAmount,
	}
	result.IsDiscounted = low.IsDiscounted || high.IsDiscounted
	return result
}

// GetDiscountedPrice returns only the discounted value of price.
func (c *Calculator) GetDiscountedPrice(coupon *model.Coupon, price float64) float64 {
	return c.ApplyCouponDiscount(price, coupon).DiscountedPrice
}

// GetCouponDiscount returns the full result for price.
func (c *Calculator) GetCouponDiscount(coupon *model.Coupon, price float64) model.DiscountCalculationResult {
	return c.ApplyCouponDiscount(price, coupon)
}

func (c *Calculator) apply(price float64, currency string, coupon *model.Coupon) model.DiscountCalculationResult {
	original := pricing.Round(price)
	result := model.DiscountCalculationResult{
		OriginalPrice:   original,
		DiscountedPrice: original,
		Savings:         pricing.FormatPrice(0, currency),
	}
	if !c.Applicable(coupon) || original <= 0 {
		return result
	}

	percent := effectivePercent(coupon)
	base := decimal.NewFromFloat(original)
	amount := base.Mul(decimal.NewFromFloat(percent)).Div(hundred)
	if coupon.MaxDiscount != nil {
		if limit := *coupon.MaxDiscount; !math.IsNaN(limit) && !math.IsInf(limit, 1) {
			amount = decimal.Min(amount, decimal.NewFromFloat(math.Max(limit, 0)))
		}
	}
	// Never discount below zero or above the price itself.
	amount = decimal.Max(decimal.Zero, decimal.Min(amount, base)).Round(2)

	result.DiscountAmount = amount.InexactFloat64()
	result.DiscountedPrice = base.Sub(amount).Round(2).InexactFloat64()
	result.DiscountPercent = percent
	result.IsDiscounted = amount.IsPositive()
	result.Savings = pricing.FormatPrice(result.DiscountAmount, currency)
	return result
}

// effectivePercent clamps the coupon percent into [0, 100].
func effectivePercent(coupon *model.Coupon) float64 {
	switch p := coupon.DiscountPercent; {
	case p < 0 || math.IsNaN(p):
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// GetDiscountBadge returns a short label such as "20% OFF", or "" for
// non-positive percents.
func GetDiscountBadge(percent float64) string {
	if !(percent > 0) {
		return ""
	}
	if percent > 100 {
		percent = 100
	}
	return fmt.Sprintf("%s%% OFF", decimal.NewFromFloat(percent).Round(2).String())
}
