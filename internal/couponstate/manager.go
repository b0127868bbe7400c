// Package couponstate holds the single active coupon of a browsing session.
//
// A Manager moves between Idle, Applying, Applied and Error. Applying a new
// coupon replaces the previous one; a failed application leaves any
// previously applied coupon in place.
package couponstate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-discount-engine/internal/discount"
	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	appvalidator "github.com/fairyhunter13/coupon-discount-engine/internal/validator"
)

// Status is the lifecycle state of a Manager.
type Status int

const (
	StatusIdle Status = iota
	StatusApplying
	StatusApplied
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusApplying:
		return "applying"
	case StatusApplied:
		return "applied"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Messages surfaced through Manager.Error.
const (
	MessageEmptyCode       = "Please enter a coupon code"
	MessageNetworkError    = "Network error. Please try again."
	MessageInvalidResponse = "Unexpected response from coupon service"
	MessageRejected        = "Invalid coupon code"
)

const (
	DefaultHistoryLimit = 5
	DefaultApplyTimeout = 10 * time.Second

	couponKey  = "active_coupon"
	historyKey = "coupon_history"
)

// Validator checks a coupon code against the authoritative service.
type Validator interface {
	Validate(ctx context.Context, req model.ValidateCouponRequest) (*model.ValidateCouponResponse, error)
}

// Manager is safe for concurrent use.
type Manager struct {
	validator    Validator
	store        KeyValueStore
	namespace    string
	historyLimit int
	timeout      time.Duration
	calc         *discount.Calculator
	validate     *validator.Validate

	mu      sync.RWMutex
	status  Status
	active  *model.Coupon
	lastErr string
	history []string
	// seq identifies the most recent ApplyCoupon call; responses to older
	// calls are discarded.
	seq uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore enables persistence of the active coupon and history.
func WithStore(store KeyValueStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithNamespace prefixes persisted keys, typically with a session id.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		m.namespace = namespace
	}
}

// WithHistoryLimit bounds the number of remembered codes.
func WithHistoryLimit(limit int) Option {
	return func(m *Manager) {
		if limit > 0 {
			m.historyLimit = limit
		}
	}
}

// WithApplyTimeout bounds each validation call.
func WithApplyTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithCalculator sets the calculator used for price reads.
func WithCalculator(calc *discount.Calculator) Option {
	return func(m *Manager) {
		if calc != nil {
			m.calc = calc
		}
	}
}

// WithStructValidator sets the validator used to check coupon records
// received from the service or the store.
func WithStructValidator(v *validator.Validate) Option {
	return func(m *Manager) {
		if v != nil {
			m.validate = v
		}
	}
}

// New creates an Idle Manager. Call Load to rehydrate persisted state.
func New(v Validator, opts ...Option) *Manager {
	m := &Manager{
		validator:    v,
		historyLimit: DefaultHistoryLimit,
		timeout:      DefaultApplyTimeout,
		calc:         discount.New(),
		validate:     appvalidator.New(),
		history:      []string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load restores a persisted coupon as Applied without re-validating it
// against the service. Records that fail structural validation are
// discarded. Load is a no-op without a store.
func (m *Manager) Load(ctx context.Context) {
	if m.store == nil {
		return
	}

	history := m.loadHistory(ctx)
	coupon := m.loadCoupon(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = history
	if coupon != nil {
		m.active = coupon
		m.status = StatusApplied
		m.lastErr = ""
	}
}

// ApplyCoupon validates code for orderValue and makes it the active coupon
// on success. It reports whether the coupon was applied.
//
// When calls overlap, only the most recently issued one may change state;
// an older response arriving later is dropped and its call returns false.
func (m *Manager) ApplyCoupon(ctx context.Context, code string, orderValue float64) bool {
	code = model.NormalizeCode(code)

	m.mu.Lock()
	m.seq++
	seq := m.seq
	if code == "" {
		m.fail(MessageEmptyCode)
		m.mu.Unlock()
		return false
	}
	m.status = StatusApplying
	m.lastErr = ""
	m.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	resp, err := m.validator.Validate(callCtx, model.ValidateCouponRequest{Code: code, OrderValue: orderValue})

	coupon, message := m.interpret(code, resp, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		log.Debug().Str("coupon_code", code).Msg("discarding stale coupon validation response")
		return false
	}
	if coupon == nil {
		m.fail(message)
		return false
	}

	m.active = coupon
	m.status = StatusApplied
	m.lastErr = ""
	m.pushHistory(coupon.Code)
	m.persist(ctx, coupon)
	log.Debug().Str("coupon_code", coupon.Code).Msg("coupon applied")
	return true
}

// ClearCoupon removes the active coupon and its persisted copy.
func (m *Manager) ClearCoupon(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Invalidate any in-flight ApplyCoupon.
	m.seq++
	m.active = nil
	m.status = StatusIdle
	m.lastErr = ""
	if m.store != nil {
		if err := m.store.Remove(ctx, m.key(couponKey)); err != nil {
			log.Warn().Err(err).Str("namespace", m.namespace).Msg("failed to remove persisted coupon")
		}
	}
}

// ActiveCoupon returns a copy of the active coupon, or nil.
func (m *Manager) ActiveCoupon() *model.Coupon {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active.Clone()
}

// HasActiveCoupon reports whether a coupon is active.
func (m *Manager) HasActiveCoupon() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != nil
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Error returns the message of the last failed application.
func (m *Manager) Error() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// History returns recently applied codes, most recent first.
func (m *Manager) History() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// GetDiscountedPrice prices value against the active coupon.
func (m *Manager) GetDiscountedPrice(price float64) float64 {
	return m.calc.GetDiscountedPrice(m.ActiveCoupon(), price)
}

// GetCouponDiscount returns the full discount result for price against the active coupon.
func (m *Manager) GetCouponDiscount(price float64) model.DiscountCalculationResult {
	return m.calc.GetCouponDiscount(m.ActiveCoupon(), price)
}

// interpret converts a validation outcome into either an accepted coupon or
// a user-facing message.
func (m *Manager) interpret(code string, resp *model.ValidateCouponResponse, err error) (*model.Coupon, string) {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Str("coupon_code", code).Dur("timeout", m.timeout).Msg("coupon validation timed out")
		} else {
			log.Warn().Err(err).Str("coupon_code", code).Msg("coupon validation failed")
		}
		return nil, MessageNetworkError
	}
	if resp == nil {
		return nil, MessageInvalidResponse
	}
	if !resp.IsValid {
		if msg := strings.TrimSpace(resp.Error); msg != "" {
			return nil, msg
		}
		return nil, MessageRejected
	}

	coupon, ok := m.sanitize(resp.Coupon)
	if !ok {
		log.Warn().Str("coupon_code", code).Msg("rejecting malformed coupon from validation response")
		return nil, MessageInvalidResponse
	}
	return coupon, ""
}

// sanitize normalizes and structurally validates an untrusted coupon record.
func (m *Manager) sanitize(c *model.Coupon) (*model.Coupon, bool) {
	if c == nil {
		return nil, false
	}
	out := c.Clone()
	out.Code = model.NormalizeCode(out.Code)
	if out.Type == "" {
		out.Type = model.CouponTypePercentage
	}
	if err := m.validate.Struct(out); err != nil {
		return nil, false
	}
	return out, true
}

// fail records message and enters Error. The active coupon is untouched.
// Callers must hold m.mu.
func (m *Manager) fail(message string) {
	m.status = StatusError
	m.lastErr = message
}

// pushHistory moves code to the front, dropping duplicates and overflow.
// Callers must hold m.mu.
func (m *Manager) pushHistory(code string) {
	next := make([]string, 0, m.historyLimit)
	next = append(next, code)
	for _, c := range m.history {
		if c != code && len(next) < m.historyLimit {
			next = append(next, c)
		}
	}
	m.history = next
}

// persist writes the active coupon and history. Failures are logged only.
// Callers must hold m.mu.
func (m *Manager) persist(ctx context.Context, coupon *model.Coupon) {
	if m.store == nil {
		return
	}
	if data, err := json.Marshal(coupon); err == nil {
		if err := m.store.Set(ctx, m.key(couponKey), string(data)); err != nil {
			log.Warn().Err(err).Str("namespace", m.namespace).Msg("failed to persist coupon")
		}
	}
	if data, err := json.Marshal(m.history); err == nil {
		if err := m.store.Set(ctx, m.key(historyKey), string(data)); err != nil {
			log.Warn().Err(err).Str("namespace", m.namespace).Msg("failed to persist coupon history")
		}
	}
}

func (m *Manager) loadCoupon(ctx context.Context) *model.Coupon {
	raw, found, err := m.store.Get(ctx, m.key(couponKey))
	if err != nil {
		log.Warn().Err(err).Str("namespace", m.namespace).Msg("failed to load persisted coupon")
		return nil
	}
	if !found {
		return nil
	}

	var stored model.Coupon
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Warn().Err(err).Str("namespace", m.namespace).Msg("discarding unreadable persisted coupon")
		_ = m.store.Remove(ctx, m.key(couponKey))
		return nil
	}
	coupon, ok := m.sanitize(&stored)
	if !ok {
		log.Warn().Str("namespace", m.namespace).Msg("discarding malformed persisted coupon")
		_ = m.store.Remove(ctx, m.key(couponKey))
		return nil
	}
	return coupon
}

func (m *Manager) loadHistory(ctx context.Context) []string {
	history := []string{}
	raw, found, err := m.store.Get(ctx, m.key(historyKey))
	if err != nil {
		log.Warn().Err(err).Str("namespace", m.namespace).Msg("failed to load coupon history")
		return history
	}
	if !found {
		return history
	}

	var stored []string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return history
	}
	seen := make(map[string]bool, len(stored))
	for _, code := range stored {
		code = model.NormalizeCode(code)
		if code == "" || seen[code] || len(history) >= m.historyLimit {
			continue
		}
		seen[code] = true
		history = append(history, code)
	}
	return history
}

func (m *Manager) key(name string) string {
	if m.namespace == "" {
		return name
	}
	return m.namespace + ":" + name
}
