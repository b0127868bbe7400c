package service

import "errors"

var (
	// ErrCouponExists is returned when attempting to create a coupon that already exists
	ErrCouponExists = errors.New("coupon already exists")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrCouponInactive is returned when a coupon exists but has been deactivated
	ErrCouponInactive = errors.New("coupon inactive")

	// ErrCouponExpired is returned when a coupon's expiry date has passed
	ErrCouponExpired = errors.New("coupon expired")

	// ErrMinOrderNotMet is returned when the order value is below the coupon minimum
	ErrMinOrderNotMet = errors.New("minimum order value not met")

	// ErrUsageLimitReached is returned when a coupon has exhausted its allowed uses
	ErrUsageLimitReached = errors.New("coupon usage limit reached")

	// ErrAlreadyRedeemed is returned when a coupon was already redeemed for an order
	ErrAlreadyRedeemed = errors.New("coupon already redeemed for order")
)
