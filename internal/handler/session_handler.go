package handler

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-discount-engine/internal/couponstate"
	"github.com/fairyhunter13/coupon-discount-engine/internal/discount"
	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
)

const sessionMarkerKey = "created_at"

// SessionHandler exposes a per-session coupon state over HTTP. Each request
// rehydrates the session's Manager from the store.
type SessionHandler struct {
	couponValidator couponstate.Validator
	store           couponstate.KeyValueStore
	calc            *discount.Calculator
	validator       *validator.Validate
	opts            []couponstate.Option
}

// NewSessionHandler creates a SessionHandler persisting sessions in store.
// opts are applied to every Manager the handler builds.
func NewSessionHandler(cv couponstate.Validator, store couponstate.KeyValueStore, calc *discount.Calculator, v *validator.Validate, opts ...couponstate.Option) *SessionHandler {
	if calc == nil {
		calc = discount.New()
	}
	return &SessionHandler{
		couponValidator: cv,
		store:           store,
		calc:            calc,
		validator:       v,
		opts:            opts,
	}
}

func sessionNamespace(id string) string {
	return "session:" + id
}

// manager loads the session named by the :id param. It writes an error
// response and returns nil when the id is malformed or unknown.
func (h *SessionHandler) manager(c *fiber.Ctx) (*couponstate.Manager, string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, id, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: session id is invalid"})
	}

	namespace := sessionNamespace(id)
	_, found, err := h.store.Get(c.Context(), namespace+":"+sessionMarkerKey)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("session_id", id).
			Msg("failed to load session")
		return nil, id, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	if !found {
		return nil, id, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	opts := make([]couponstate.Option, 0, len(h.opts)+3)
	opts = append(opts, h.opts...)
	opts = append(opts,
		couponstate.WithStore(h.store),
		couponstate.WithNamespace(namespace),
		couponstate.WithCalculator(h.calc),
	)
	m := couponstate.New(h.couponValidator, opts...)
	m.Load(c.Context())
	return m, id, nil
}

func sessionState(id string, m *couponstate.Manager) model.SessionStateResponse {
	return model.SessionStateResponse{
		SessionID:    id,
		Status:       m.Status().String(),
		ActiveCoupon: m.ActiveCoupon(),
		Error:        m.Error(),
		History:      m.History(),
	}
}

// CreateSession handles POST /api/sessions.
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	id := uuid.NewString()
	marker := sessionNamespace(id) + ":" + sessionMarkerKey
	if err := h.store.Set(c.Context(), marker, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Msg("failed to create session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(model.SessionStateResponse{
		SessionID: id,
		Status:    couponstate.StatusIdle.String(),
		History:   []string{},
	})
}

// GetSession handles GET /api/sessions/:id/coupon.
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	m, id, err := h.manager(c)
	if m == nil {
		return err
	}
	return c.JSON(sessionState(id, m))
}

// ApplyCoupon handles POST /api/sessions/:id/coupon. A rejected coupon
// yields 422 with the unchanged session state and the rejection message.
func (h *SessionHandler) ApplyCoupon(c *fiber.Ctx) error {
	var req model.ApplyCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	m, id, err := h.manager(c)
	if m == nil {
		return err
	}

	if !m.ApplyCoupon(c.Context(), req.Code, req.OrderValue) {
		log.Info().
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("session_id", id).
			Str("coupon_code", model.NormalizeCode(req.Code)).
			Str("reason", m.Error()).
			Msg("coupon not applied")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(sessionState(id, m))
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("session_id", id).
		Str("coupon_code", m.ActiveCoupon().Code).
		Msg("coupon applied to session")
	return c.JSON(sessionState(id, m))
}

// ClearCoupon handles DELETE /api/sessions/:id/coupon.
func (h *SessionHandler) ClearCoupon(c *fiber.Ctx) error {
	m, id, err := h.manager(c)
	if m == nil {
		return err
	}
	m.ClearCoupon(c.Context())
	return c.JSON(sessionState(id, m))
}

// Quote handles GET /api/sessions/:id/quote?price=... against the active coupon.
// price may be a number or a formatted price such as "₹1,299.00".
func (h *SessionHandler) Quote(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Query("price"))
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: price is required"})
	}

	m, id, err := h.manager(c)
	if m == nil {
		return err
	}

	result := h.calc.ApplyCouponDiscountText(raw, m.ActiveCoupon())
	resp := model.SessionQuoteResponse{SessionID: id, Discount: result}
	if result.IsDiscounted {
		resp.Badge = discount.GetDiscountBadge(result.DiscountPercent)
	}
	return c.JSON(resp)
}
