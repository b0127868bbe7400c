package model

// ApplyCouponRequest is the DTO for applying a coupon to a session.
type ApplyCouponRequest struct {
	Code       string  `json:"code" validate:"max=64"`
	OrderValue float64 `json:"orderValue" validate:"gte=0"`
}

// SessionStateResponse is the API view of a session's coupon state.
type SessionStateResponse struct {
	SessionID    string   `json:"sessionId"`
	Status       string   `json:"status"`
	ActiveCoupon *Coupon  `json:"activeCoupon"`
	Error        string   `json:"error,omitempty"`
	History      []string `json:"history"`
}

// SessionQuoteResponse is a price computed against the session's active coupon.
type SessionQuoteResponse struct {
	SessionID string                    `json:"sessionId"`
	Discount  DiscountCalculationResult `json:"discount"`
	Badge     string                    `json:"badge"`
}
