package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticPing(err error) PingFunc {
	return func(ctx context.Context) error { return err }
}

func TestHealthHandler_Check(t *testing.T) {
	testCases := []struct {
		name       string
		db         Pinger
		cache      Pinger
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "healthy_without_cache",
			db:         staticPing(nil),
			wantStatus: fiber.StatusOK,
			wantBody:   []string{`"status":"healthy"`},
		},
		{
			name:       "healthy_with_cache",
			db:         staticPing(nil),
			cache:      staticPing(nil),
			wantStatus: fiber.StatusOK,
			wantBody:   []string{`"status":"healthy"`},
		},
		{
			name:       "database_down",
			db:         staticPing(errors.New("connection refused")),
			cache:      staticPing(nil),
			wantStatus: fiber.StatusServiceUnavailable,
			wantBody:   []string{`"status":"unhealthy"`, `"error":"database connection failed"`},
		},
		{
			name:       "cache_down",
			db:         staticPing(nil),
			cache:      staticPing(errors.New("redis: client is closed")),
			wantStatus: fiber.StatusServiceUnavailable,
			wantBody:   []string{`"status":"unhealthy"`, `"error":"session cache connection failed"`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			h := NewHealthHandler(tc.db, tc.cache)
			app.Get("/health", h.Check)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			defer func() {
				_ = resp.Body.Close()
			}()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			for _, want := range tc.wantBody {
				assert.Contains(t, string(body), want)
			}
		})
	}
}
