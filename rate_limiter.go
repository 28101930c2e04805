package iam

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-router"
)

const (
	// DefaultRateLimitRequests is the number of requests admitted per window
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindow is the sliding window width
	DefaultRateLimitWindow = time.Minute
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter admits or rejects requests per client key over a sliding
// window. Implementations keep state local to the process; a shared
// store can be substituted behind this interface.
type RateLimiter interface {
	Check(key string) Decision
}

const limiterShards = 32

type limiterShard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// SlidingWindowLimiter keeps an ordered timestamp window per client
// key. Eviction, comparison and append happen under the key's shard
// lock so concurrent checks never over admit.
type SlidingWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	shards [limiterShards]*limiterShard
}

// LimiterOption configures a SlidingWindowLimiter
type LimiterOption func(*SlidingWindowLimiter)

// WithLimiterClock overrides the limiter time source, used in tests
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *SlidingWindowLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewSlidingWindowLimiter creates a limiter admitting limit requests
// per key over the given window.
func NewSlidingWindowLimiter(limit int, window time.Duration, opts ...LimiterOption) *SlidingWindowLimiter {
	if limit <= 0 {
		limit = DefaultRateLimitRequests
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}

	limiter := &SlidingWindowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}

	for i := range limiter.shards {
		limiter.shards[i] = &limiterShard{
			windows: make(map[string][]time.Time),
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(limiter)
		}
	}

	return limiter
}

// Check evicts expired entries for the key, then either records the
// request or denies it with the time until the oldest entry expires.
func (l *SlidingWindowLimiter) Check(key string) Decision {
	now := l.now()
	cutoff := now.Add(-l.window)

	shard := l.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	window := shard.windows[key]

	evicted := 0
	for evicted < len(window) && !window[evicted].After(cutoff) {
		evicted++
	}
	if evicted > 0 {
		window = append(window[:0:0], window[evicted:]...)
	}

	if len(window) >= l.limit {
		shard.windows[key] = window
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: window[0].Add(l.window).Sub(now),
		}
	}

	window = append(window, now)
	shard.windows[key] = window

	return Decision{
		Allowed:   true,
		Remaining: l.limit - len(window),
	}
}

func (l *SlidingWindowLimiter) shardFor(key string) *limiterShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%limiterShards]
}

// ClientKey derives the throttle key for a request: the first entry of
// X-Forwarded-For when a fronting proxy sets it, the peer IP otherwise.
func ClientKey(ctx router.Context) string {
	forwarded := ctx.GetString("X-Forwarded-For", "")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if key := strings.TrimSpace(parts[0]); key != "" {
			return key
		}
	}
	return ctx.IP()
}
