package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-discount-engine/internal/discount"
	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/internal/pricing"
	"github.com/fairyhunter13/coupon-discount-engine/internal/service"
)

// CouponLookup loads a stored coupon by code.
type CouponLookup interface {
	Lookup(ctx context.Context, code string) (*model.Coupon, error)
}

// DiscountHandler quotes discounted prices for display. Quotes never check
// order-level eligibility such as minimum order value or usage limits.
type DiscountHandler struct {
	coupons   CouponLookup
	calc      *discount.Calculator
	validator *validator.Validate
}

// NewDiscountHandler creates a new DiscountHandler.
func NewDiscountHandler(coupons CouponLookup, calc *discount.Calculator, v *validator.Validate) *DiscountHandler {
	if calc == nil {
		calc = discount.New()
	}
	return &DiscountHandler{coupons: coupons, calc: calc, validator: v}
}

// lookup writes an error response and returns nil when the coupon can't be loaded.
func (h *DiscountHandler) lookup(c *fiber.Ctx, code string) (*model.Coupon, error) {
	coupon, err := h.coupons.Lookup(c.Context(), code)
	if err == nil {
		return coupon, nil
	}
	if errors.Is(err, service.ErrCouponNotFound) {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
	}
	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("coupon_code", code).
		Msg("failed to load coupon for quote")
	return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// QuotePrice handles POST /api/discounts/price.
func (h *DiscountHandler) QuotePrice(c *fiber.Ctx) error {
	var req model.PriceQuoteRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}
	if req.Price == nil && req.PriceText == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: price or priceText is required"})
	}

	coupon, err := h.lookup(c, req.Code)
	if coupon == nil {
		return err
	}

	var result model.DiscountCalculationResult
	if req.Price != nil {
		result = h.calc.ApplyCouponDiscount(*req.Price, coupon)
	} else {
		result = h.calc.ApplyCouponDiscountText(req.PriceText, coupon)
	}

	resp := model.PriceQuoteResponse{Code: coupon.Code, Discount: result}
	if result.IsDiscounted {
		resp.Badge = discount.GetDiscountBadge(result.DiscountPercent)
	}
	return c.JSON(resp)
}

// QuoteRange handles POST /api/discounts/range.
func (h *DiscountHandler) QuoteRange(c *fiber.Ctx) error {
	var req model.RangeQuoteRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.lookup(c, req.Code)
	if coupon == nil {
		return err
	}

	result := h.calc.ApplyCouponDiscountToRange(req.Range, coupon)
	resp := model.RangeQuoteResponse{
		DiscountedPriceRange: result,
		OriginalText:         pricing.FormatPriceRange(result.Original),
		DiscountedText:       pricing.FormatPriceRange(result.Discounted),
	}
	if result.IsDiscounted {
		resp.Badge = discount.GetDiscountBadge(result.Discount.Percent)
	}
	return c.JSON(resp)
}
