package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/internal/service"
)

// RedemptionServiceInterface defines the interface for redemption business logic.
type RedemptionServiceInterface interface {
	Redeem(ctx context.Context, req *model.RedeemCouponRequest) (*model.RedeemCouponResponse, error)
}

// RedemptionHandler handles HTTP requests for coupon redemption.
type RedemptionHandler struct {
	service   RedemptionServiceInterface
	validator *validator.Validate
}

// NewRedemptionHandler creates a new RedemptionHandler with the given service and validator.
func NewRedemptionHandler(svc RedemptionServiceInterface, v *validator.Validate) *RedemptionHandler {
	return &RedemptionHandler{service: svc, validator: v}
}

// redemptionRejection maps eligibility errors to a status and message.
// ok is false for errors that are not rejections.
func redemptionRejection(err error) (status int, message string, ok bool) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		return fiber.StatusNotFound, "coupon not found", true
	case errors.Is(err, service.ErrAlreadyRedeemed):
		return fiber.StatusConflict, "coupon already redeemed for order", true
	case errors.Is(err, service.ErrCouponInactive):
		return fiber.StatusUnprocessableEntity, "coupon is not active", true
	case errors.Is(err, service.ErrCouponExpired):
		return fiber.StatusUnprocessableEntity, "coupon has expired", true
	case errors.Is(err, service.ErrMinOrderNotMet):
		return fiber.StatusUnprocessableEntity, "order value below coupon minimum", true
	case errors.Is(err, service.ErrUsageLimitReached):
		return fiber.StatusUnprocessableEntity, "coupon usage limit reached", true
	case errors.Is(err, service.ErrInvalidRequest):
		return fiber.StatusBadRequest, "invalid request", true
	}
	return 0, "", false
}

// RedeemCoupon handles POST /api/coupons/redeem requests to consume one use of a coupon.
func (h *RedemptionHandler) RedeemCoupon(c *fiber.Ctx) error {
	var req model.RedeemCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	resp, err := h.service.Redeem(c.Context(), &req)
	if err != nil {
		if status, message, ok := redemptionRejection(err); ok {
			return c.Status(status).JSON(fiber.Map{"error": message})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("order_id", req.OrderID).
			Str("coupon_code", req.Code).
			Msg("failed to redeem coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("order_id", resp.OrderID).
		Str("coupon_code", resp.Code).
		Float64("discount_amount", resp.Discount.DiscountAmount).
		Msg("coupon redeemed successfully")

	return c.Status(fiber.StatusOK).JSON(resp)
}
