//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectStatuses runs n concurrent requests and tallies their status codes.
// A status of 0 records a transport error.
func collectStatuses(n int, do func(i int) (*http.Response, error)) map[int]int {
	var wg sync.WaitGroup
	results := make(chan int, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := do(i)
			if err != nil {
				results <- 0
				return
			}
			resp.Body.Close()
			results <- resp.StatusCode
		}(i)
	}

	wg.Wait()
	close(results)

	counts := make(map[int]int)
	for status := range results {
		counts[status]++
	}
	return counts
}

func TestConcurrentRedeem_UsageCap(t *testing.T) {
	cleanupTables(t)

	const (
		couponCode         = "HTTP_FLASH"
		maxUses            = 5
		concurrentRequests = 50
	)
	createTestCoupon(t, couponCode, 30, map[string]interface{}{"maxUses": maxUses})

	counts := collectStatuses(concurrentRequests, func(i int) (*http.Response, error) {
		return postJSON(formatURL("/api/coupons/redeem"), map[string]interface{}{
			"code":       couponCode,
			"orderId":    fmt.Sprintf("order_%d", i),
			"orderValue": 300,
		})
	})
	t.Logf("Status counts: %v", counts)

	assert.Equal(t, maxUses, counts[http.StatusOK])
	assert.Equal(t, concurrentRequests-maxUses, counts[http.StatusUnprocessableEntity])

	usedCount, redemptions := getUsageFromDB(t, couponCode)
	assert.Equal(t, maxUses, usedCount)
	assert.Equal(t, maxUses, redemptions)
}

func TestConcurrentRedeem_SameOrder(t *testing.T) {
	cleanupTables(t)

	const (
		couponCode         = "HTTP_DOUBLE"
		concurrentRequests = 10
	)
	createTestCoupon(t, couponCode, 10, nil)

	counts := collectStatuses(concurrentRequests, func(int) (*http.Response, error) {
		return postJSON(formatURL("/api/coupons/redeem"), map[string]interface{}{
			"code":       couponCode,
			"orderId":    "order_same",
			"orderValue": 100,
		})
	})
	t.Logf("Status counts: %v", counts)

	assert.Equal(t, 1, counts[http.StatusOK])
	assert.Equal(t, concurrentRequests-1, counts[http.StatusConflict])

	usedCount, redemptions := getUsageFromDB(t, couponCode)
	assert.Equal(t, 1, usedCount)
	assert.Equal(t, 1, redemptions)
}

// TestConcurrentSessionApply races applies of different coupons on one
// session. Whichever write lands last, the session must end in a
// consistent applied state holding one of the codes.
func TestConcurrentSessionApply(t *testing.T) {
	cleanupTables(t)

	codes := []string{"RACE5", "RACE10", "RACE15", "RACE20"}
	for i, code := range codes {
		createTestCoupon(t, code, float64(5*(i+1)), nil)
	}
	id := createSession(t)

	counts := collectStatuses(len(codes)*5, func(i int) (*http.Response, error) {
		return postJSON(sessionURL(id, "/coupon"), map[string]interface{}{
			"code":       codes[i%len(codes)],
			"orderValue": 100,
		})
	})
	require.Equal(t, len(codes)*5, counts[http.StatusOK], "every apply should succeed: %v", counts)

	resp, err := getJSON(sessionURL(id, "/coupon"))
	require.NoError(t, err)
	var state map[string]interface{}
	require.NoError(t, readJSONResponse(resp, &state))

	assert.Equal(t, "applied", state["status"])
	assert.Contains(t, codes, activeCode(state))
	history, _ := state["history"].([]interface{})
	assert.NotEmpty(t, history)
	assert.LessOrEqual(t, len(history), len(codes))
}
