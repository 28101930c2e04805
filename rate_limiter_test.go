package iam_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiterAdmitsUpToLimit(t *testing.T) {
	limiter := iam.NewSlidingWindowLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		decision := limiter.Check("client-a")
		assert.True(t, decision.Allowed)
		assert.Equal(t, 3-(i+1), decision.Remaining)
	}

	decision := limiter.Check("client-a")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestSlidingWindowLimiterRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	limiter := iam.NewSlidingWindowLimiter(2, time.Minute, iam.WithLimiterClock(clock))

	require.True(t, limiter.Check("client-a").Allowed)

	now = now.Add(10 * time.Second)
	require.True(t, limiter.Check("client-a").Allowed)

	now = now.Add(10 * time.Second)
	decision := limiter.Check("client-a")
	require.False(t, decision.Allowed)

	// oldest entry was 20s ago, so it leaves the window in 40s
	assert.Equal(t, 40*time.Second, decision.RetryAfter)
}

func TestSlidingWindowLimiterEvictsExpiredEntries(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	limiter := iam.NewSlidingWindowLimiter(2, time.Minute, iam.WithLimiterClock(clock))

	require.True(t, limiter.Check("client-a").Allowed)
	require.True(t, limiter.Check("client-a").Allowed)
	require.False(t, limiter.Check("client-a").Allowed)

	now = now.Add(time.Minute + time.Second)

	decision := limiter.Check("client-a")
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Remaining)
}

func TestSlidingWindowLimiterIsolatesKeys(t *testing.T) {
	limiter := iam.NewSlidingWindowLimiter(1, time.Minute)

	require.True(t, limiter.Check("client-a").Allowed)
	require.False(t, limiter.Check("client-a").Allowed)

	assert.True(t, limiter.Check("client-b").Allowed)
}

func TestSlidingWindowLimiterDefaults(t *testing.T) {
	limiter := iam.NewSlidingWindowLimiter(0, 0)

	decision := limiter.Check("client-a")
	assert.True(t, decision.Allowed)
	assert.Equal(t, iam.DefaultRateLimitRequests-1, decision.Remaining)
}

func TestSlidingWindowLimiterConcurrentChecks(t *testing.T) {
	const limit = 100
	const attempts = 250

	limiter := iam.NewSlidingWindowLimiter(limit, time.Minute)

	var admitted int64
	var wg sync.WaitGroup
	wg.Add(attempts)

	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if limiter.Check("shared-client").Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted)
}

func TestSlidingWindowLimiterConcurrentKeys(t *testing.T) {
	limiter := iam.NewSlidingWindowLimiter(5, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("client-%d", i)
			for j := 0; j < 5; j++ {
				assert.True(t, limiter.Check(key).Allowed)
			}
			assert.False(t, limiter.Check(key).Allowed)
		}(i)
	}
	wg.Wait()
}
