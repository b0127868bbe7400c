//go:build stress

package stress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/internal/service"
)

// TestDoubleDip fires 10 concurrent redemptions for the SAME order. The
// UNIQUE(coupon_code, order_id) constraint leaves exactly one success.
//
// The coupon is uncapped so every failure comes from the duplicate order,
// not from usage exhaustion.
func TestDoubleDip(t *testing.T) {
	cleanupTables(t)

	const (
		couponCode         = "DOUBLE_TEST"
		concurrentRequests = 10
		orderID            = "order_greedy"
		timeout            = 30 * time.Second
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	svc := newCouponService()
	createTestCoupon(t, svc, couponCode, 15, 0)

	startTime := time.Now()
	t.Logf("Starting double dip stress test: %d concurrent same-order requests", concurrentRequests)

	var wg sync.WaitGroup
	results := make(chan error, concurrentRequests)

	for i := 0; i < concurrentRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(ctx, &model.RedeemCouponRequest{
				Code:       couponCode,
				OrderID:    orderID,
				OrderValue: 200,
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, alreadyRedeemed, otherErrors int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, service.ErrAlreadyRedeemed):
			alreadyRedeemed++
		default:
			otherErrors++
			t.Logf("Unexpected error: %v", err)
		}
	}

	t.Logf("Results - Successes: %d, AlreadyRedeemed: %d, Other: %d", successes, alreadyRedeemed, otherErrors)
	t.Logf("Execution time: %v", time.Since(startTime))

	assert.Equal(t, 1, successes, "Exactly one redemption should succeed")
	assert.Equal(t, concurrentRequests-1, alreadyRedeemed,
		"Exactly %d redemptions should fail with ErrAlreadyRedeemed", concurrentRequests-1)
	assert.Equal(t, 0, otherErrors, "No other errors should occur")

	usedCount, redemptions := getUsageFromDB(t, couponCode)
	assert.Equal(t, 1, usedCount, "used_count should reflect a single redemption")
	assert.Equal(t, 1, redemptions, "Only one redemption record should exist")

	var discountAmount float64
	err := testPool.QueryRow(ctx,
		"SELECT discount_amount::float8 FROM redemptions WHERE coupon_code = $1 AND order_id = $2",
		couponCode, orderID).Scan(&discountAmount)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, discountAmount, 0.001, "15%% of 200 should be recorded")
}

// TestDoubleDip_MultipleOrders checks that distinct orders are not blocked
// by each other while each order still redeems once.
func TestDoubleDip_MultipleOrders(t *testing.T) {
	cleanupTables(t)

	const (
		couponCode      = "DOUBLE_MULTI"
		orders          = 5
		attemptsPerUser = 4
	)

	ctx := context.Background()
	svc := newCouponService()
	createTestCoupon(t, svc, couponCode, 10, 0)

	var wg sync.WaitGroup
	successes := make([]int, orders)
	var mu sync.Mutex

	for o := 0; o < orders; o++ {
		for a := 0; a < attemptsPerUser; a++ {
			wg.Add(1)
			go func(o int) {
				defer wg.Done()
				_, err := svc.Redeem(ctx, &model.RedeemCouponRequest{
					Code:       couponCode,
					OrderID:    "order_" + string(rune('A'+o)),
					OrderValue: 100,
				})
				if err == nil {
					mu.Lock()
					successes[o]++
					mu.Unlock()
				}
			}(o)
		}
	}
	wg.Wait()

	for o, n := range successes {
		assert.Equal(t, 1, n, "order %d should redeem exactly once", o)
	}
	usedCount, redemptions := getUsageFromDB(t, couponCode)
	assert.Equal(t, orders, usedCount)
	assert.Equal(t, orders, redemptions)
}
