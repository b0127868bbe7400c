//go:build stress

package stress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
	"github.com/fairyhunter13/coupon-discount-engine/internal/service"
)

// TestFlashSale fires 50 concurrent redemptions for distinct orders at a
// coupon capped at 5 uses. Exactly 5 must succeed and used_count must stop at 5.
func TestFlashSale(t *testing.T) {
	cleanupTables(t)

	const (
		couponCode         = "FLASH_TEST"
		maxUses            = 5
		concurrentRequests = 50
		timeout            = 30 * time.Second
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	svc := newCouponService()
	createTestCoupon(t, svc, couponCode, 20, maxUses)

	startTime := time.Now()
	t.Logf("Starting flash sale stress test: %d concurrent requests, %d uses", concurrentRequests, maxUses)

	var wg sync.WaitGroup
	results := make(chan error, concurrentRequests)

	for i := 0; i < concurrentRequests; i++ {
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			_, err := svc.Redeem(ctx, &model.RedeemCouponRequest{
				Code:       couponCode,
				OrderID:    orderID,
				OrderValue: 1000,
			})
			results <- err
		}(fmt.Sprintf("order_%d", i))
	}

	wg.Wait()
	close(results)

	var successes, exhausted, otherErrors int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, service.ErrUsageLimitReached):
			exhausted++
		default:
			otherErrors++
			t.Logf("Unexpected error: %v", err)
		}
	}

	executionTime := time.Since(startTime)
	t.Logf("Results - Successes: %d, Exhausted: %d, Other: %d", successes, exhausted, otherErrors)
	t.Logf("Execution time: %v", executionTime)

	assert.Equal(t, maxUses, successes, "Exactly %d redemptions should succeed", maxUses)
	assert.Equal(t, concurrentRequests-maxUses, exhausted,
		"Exactly %d redemptions should fail with ErrUsageLimitReached", concurrentRequests-maxUses)
	assert.Equal(t, 0, otherErrors, "No other errors should occur")

	usedCount, redemptions := getUsageFromDB(t, couponCode)
	assert.Equal(t, maxUses, usedCount, "used_count should stop at max_uses")
	assert.Equal(t, maxUses, redemptions, "Exactly %d redemption records should exist", maxUses)

	assert.Less(t, executionTime, timeout, "Test should complete within %v", timeout)
}
