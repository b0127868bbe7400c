// Package client talks to a remote coupon validation service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
)

const (
	validatePath = "/api/coupons/validate"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// ValidationClient calls POST /api/coupons/validate on a remote service.
type ValidationClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewValidationClient creates a client for the service at baseURL.
// A non-positive timeout leaves only the caller's context in control.
func NewValidationClient(baseURL string, timeout time.Duration) *ValidationClient {
	httpClient := &http.Client{}
	if timeout > 0 {
		httpClient.Timeout = timeout
	}
	return NewValidationClientWithHTTPClient(baseURL, httpClient)
}

// NewValidationClientWithHTTPClient creates a client using a caller-supplied http.Client.
func NewValidationClientWithHTTPClient(baseURL string, httpClient *http.Client) *ValidationClient {
	return &ValidationClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Validate sends req and decodes the service's verdict. A rejection is a
// successful call with IsValid=false; only transport problems and
// unexpected statuses return an error.
func (c *ValidationClient) Validate(ctx context.Context, req model.ValidateCouponRequest) (*model.ValidateCouponResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal validation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+validatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create validation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute validation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read validation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validation service returned status %d", resp.StatusCode)
	}

	var out model.ValidateCouponResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode validation response: %w", err)
	}
	return &out, nil
}
