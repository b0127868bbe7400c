package model

import (
	"strings"
	"time"
)

// CouponType identifies how a coupon's discount is computed.
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// Coupon represents a discount rule with its eligibility constraints.
// DiscountPercent is always a fraction of the original price.
type Coupon struct {
	Code            string     `json:"code" validate:"required,notblank,couponcode,max=64"`
	DiscountPercent float64    `json:"discountPercent" validate:"gte=0,lte=100"`
	Type            CouponType `json:"type" validate:"omitempty,oneof=percentage fixed"`
	MinOrderValue   *float64   `json:"minOrderValue,omitempty" validate:"omitempty,gte=0"`
	MaxDiscount     *float64   `json:"maxDiscount,omitempty" validate:"omitempty,gte=0"`
	IsActive        bool       `json:"isActive"`
	ExpiryDate      *time.Time `json:"expiryDate,omitempty"`
	Description     *string    `json:"description,omitempty"`
	UsedCount       int        `json:"usedCount" validate:"gte=0"`
	MaxUses         *int       `json:"maxUses,omitempty" validate:"omitempty,gte=0"`
	CreatedAt       time.Time  `json:"-"` // Not exposed in API
}

// NormalizeCode trims and uppercases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExpired reports whether the coupon's expiry date lies before now.
// Coupons without an expiry date never expire.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiryDate != nil && c.ExpiryDate.Before(now)
}

// Clone returns a deep copy so callers can't mutate shared state.
func (c *Coupon) Clone() *Coupon {
	if c == nil {
		return nil
	}
	out := *c
	if c.MinOrderValue != nil {
		v := *c.MinOrderValue
		out.MinOrderValue = &v
	}
	if c.MaxDiscount != nil {
		v := *c.MaxDiscount
		out.MaxDiscount = &v
	}
	if c.ExpiryDate != nil {
		v := *c.ExpiryDate
		out.ExpiryDate = &v
	}
	if c.Description != nil {
		v := *c.Description
		out.Description = &v
	}
	if c.MaxUses != nil {
		v := *c.MaxUses
		out.MaxUses = &v
	}
	return &out
}

// CreateCouponRequest is the DTO for creating a coupon
type CreateCouponRequest struct {
	Code            string     `json:"code" validate:"required,notblank,couponcode,max=64"`
	DiscountPercent *float64   `json:"discountPercent" validate:"required,gte=0,lte=100"`
	Type            CouponType `json:"type" validate:"omitempty,oneof=percentage fixed"`
	MinOrderValue   *float64   `json:"minOrderValue" validate:"omitempty,gte=0"`
	MaxDiscount     *float64   `json:"maxDiscount" validate:"omitempty,gte=0"`
	IsActive        *bool      `json:"isActive"`
	ExpiryDate      *time.Time `json:"expiryDate"`
	Description     *string    `json:"description" validate:"omitempty,max=1024"`
	MaxUses         *int       `json:"maxUses" validate:"omitempty,gte=1"`
}

// ValidateCouponRequest is the request body of the validation contract.
type ValidateCouponRequest struct {
	Code       string  `json:"code" validate:"required,notblank,max=64"`
	OrderValue float64 `json:"orderValue" validate:"gte=0"`
}

// ValidateCouponResponse is the response body of the validation contract.
type ValidateCouponResponse struct {
	IsValid bool    `json:"isValid"`
	Coupon  *Coupon `json:"coupon,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// RedeemCouponRequest is the DTO for consuming one use of a coupon against an order.
type RedeemCouponRequest struct {
	Code       string  `json:"code" validate:"required,notblank,max=64"`
	OrderID    string  `json:"orderId" validate:"required,notblank,max=255"`
	OrderValue float64 `json:"orderValue" validate:"gte=0"`
}

// RedeemCouponResponse reports the discount granted by a redemption.
type RedeemCouponResponse struct {
	Code     string                    `json:"code"`
	OrderID  string                    `json:"orderId"`
	Discount DiscountCalculationResult `json:"discount"`
}

// CouponDetailResponse is the API response DTO for GET /api/coupons/:code
type CouponDetailResponse struct {
	Coupon
	RedeemedOrders []string `json:"redeemedOrders"`
}
