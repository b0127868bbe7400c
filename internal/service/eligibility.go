package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/internal/pricing"
)

// User-facing rejection messages of the validation contract.
const (
	MessageInvalidCode   = "Invalid coupon code"
	MessageExpired       = "Coupon has expired"
	MessageUsageLimit    = "Coupon usage limit has been reached"
	messageMinOrderValue = "Minimum order value of %s required"
)

// CheckEligibility runs the eligibility rules in order and returns the first
// violation: inactive, expired, below minimum order, usage exhausted.
func CheckEligibility(coupon *model.Coupon, orderValue float64, now time.Time) error {
	switch {
	case coupon == nil:
		return ErrCouponNotFound
	case !coupon.IsActive:
		return ErrCouponInactive
	case coupon.IsExpired(now):
		return ErrCouponExpired
	case coupon.MinOrderValue != nil && orderValue < *coupon.MinOrderValue:
		return ErrMinOrderNotMet
	case coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses:
		return ErrUsageLimitReached
	}
	return nil
}

// RejectionMessage converts an eligibility error into the message returned to
// callers. Inactive coupons are indistinguishable from unknown codes.
func RejectionMessage(err error, coupon *model.Coupon, currency string) string {
	switch {
	case errors.Is(err, ErrCouponExpired):
		return MessageExpired
	case errors.Is(err, ErrMinOrderNotMet) && coupon != nil && coupon.MinOrderValue != nil:
		return fmt.Sprintf(messageMinOrderValue, pricing.FormatPrice(*coupon.MinOrderValue, currency))
	case errors.Is(err, ErrUsageLimitReached):
		return MessageUsageLimit
	default:
		return MessageInvalidCode
	}
}
