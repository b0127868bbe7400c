//go:build stress

package stress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/coupon-discount-engine/internal/couponstate"
	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/internal/service"
)

func TestScaleStress(t *testing.T) {
	tests := []struct {
		name               string
		maxUses            int
		concurrentRequests int
		timeout            time.Duration
	}{
		{name: "100 requests for 10 uses", maxUses: 10, concurrentRequests: 100, timeout: 60 * time.Second},
		{name: "500 requests for 50 uses", maxUses: 50, concurrentRequests: 500, timeout: 120 * time.Second},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanupTables(t)

			couponCode := fmt.Sprintf("SCALE_%d", i)
			svc := newCouponService()
			createTestCoupon(t, svc, couponCode, 10, tt.maxUses)

			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			logPoolStats(t, "Before test")
			startTime := time.Now()

			var wg sync.WaitGroup
			var successes, exhausted, otherErrors atomic.Int64

			for n := 0; n < tt.concurrentRequests; n++ {
				wg.Add(1)
				go func(orderID string) {
					defer wg.Done()
					_, err := svc.Redeem(ctx, &model.RedeemCouponRequest{
						Code:       couponCode,
						OrderID:    orderID,
						OrderValue: 500,
					})
					switch {
					case err == nil:
						successes.Add(1)
					case errors.Is(err, service.ErrUsageLimitReached):
						exhausted.Add(1)
					default:
						otherErrors.Add(1)
						t.Logf("Unexpected error for %s: %v", orderID, err)
					}
				}(fmt.Sprintf("order_%d", n))
			}
			wg.Wait()

			executionTime := time.Since(startTime)
			logPoolStats(t, "After test")
			t.Logf("Results - Successes: %d, Exhausted: %d, Other: %d in %v",
				successes.Load(), exhausted.Load(), otherErrors.Load(), executionTime)

			assert.Equal(t, int64(tt.maxUses), successes.Load())
			assert.Equal(t, int64(tt.concurrentRequests-tt.maxUses), exhausted.Load())
			assert.Equal(t, int64(0), otherErrors.Load())

			usedCount, redemptions := getUsageFromDB(t, couponCode)
			assert.Equal(t, tt.maxUses, usedCount)
			assert.Equal(t, tt.maxUses, redemptions)
			assert.Less(t, executionTime, tt.timeout)
		})
	}
}

// TestScaleSessions applies coupons from many sessions at once through a
// Redis-backed store and checks every session rehydrates its own coupon.
func TestScaleSessions(t *testing.T) {
	cleanupTables(t)

	const (
		sessions = 200
		coupons  = 4
	)

	svc := newCouponService()
	for c := 0; c < coupons; c++ {
		createTestCoupon(t, svc, fmt.Sprintf("SESSION%d", c), float64(10*(c+1)), 0)
	}

	store := couponstate.NewRedisStore(testRedis, "stress:", time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var failures atomic.Int64
	for s := 0; s < sessions; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			m := couponstate.New(svc,
				couponstate.WithStore(store),
				couponstate.WithNamespace(fmt.Sprintf("session-%d", s)),
			)
			if !m.ApplyCoupon(ctx, fmt.Sprintf("session%d", s%coupons), 1000) {
				failures.Add(1)
				t.Logf("session %d: %s", s, m.Error())
			}
		}(s)
	}
	wg.Wait()

	require.Equal(t, int64(0), failures.Load(), "every apply should succeed")

	for s := 0; s < sessions; s++ {
		m := couponstate.New(svc,
			couponstate.WithStore(store),
			couponstate.WithNamespace(fmt.Sprintf("session-%d", s)),
		)
		m.Load(ctx)

		want := fmt.Sprintf("SESSION%d", s%coupons)
		require.True(t, m.HasActiveCoupon(), "session %d should rehydrate", s)
		assert.Equal(t, want, m.ActiveCoupon().Code)
		assert.Equal(t, couponstate.StatusApplied, m.Status())
		assert.Equal(t, []string{want}, m.History())
		assert.InDelta(t, 1000-float64(10*(s%coupons+1))*10, m.GetDiscountedPrice(1000), 0.001)
	}
}
