package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/openheads/headcatalog/internal/domain/ratelimit"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewRateLimiter(ratelimit.Config{EventsPerSecond: 2, Burst: 3})
	limiter.now = clock.Now
	ctx := context.Background()

	for i := range 3 {
		res, err := limiter.Allow(ctx, "alice")
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d within burst denied", i)
		}
	}

	res, _ := limiter.Allow(ctx, "alice")
	if res.Allowed {
		t.Fatal("request beyond burst should be denied")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > 500*time.Millisecond {
		t.Errorf("RetryAfter = %v, want (0, 500ms]", res.RetryAfter)
	}

	clock.Advance(500 * time.Millisecond)
	res, _ = limiter.Allow(ctx, "alice")
	if !res.Allowed {
		t.Error("token should refill after 500ms at 2/s")
	}
}

func TestRateLimiter_DeniedRequestsDoNotConsume(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewRateLimiter(ratelimit.Config{EventsPerSecond: 1, Burst: 1})
	limiter.now = clock.Now
	ctx := context.Background()

	limiter.Allow(ctx, "alice")
	for range 10 {
		limiter.Allow(ctx, "alice")
	}

	clock.Advance(time.Second)
	if res, _ := limiter.Allow(ctx, "alice"); !res.Allowed {
		t.Error("refused calls must not push the next token further out")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(ratelimit.Config{EventsPerSecond: 1, Burst: 1})
	limiter.now = newFakeClock().Now
	ctx := context.Background()

	limiter.Allow(ctx, ratelimit.UserKey("alice"))
	res, _ := limiter.Allow(ctx, ratelimit.UserKey("bob"))
	if !res.Allowed {
		t.Error("bob should not be limited by alice")
	}
	if limiter.Size() != 2 {
		t.Errorf("Size() = %d, want 2", limiter.Size())
	}
}

func TestRateLimiter_CleanupRemovesIdleKeys(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewRateLimiterWithConfig(ratelimit.Config{EventsPerSecond: 1, Burst: 1}, time.Minute, time.Hour)
	limiter.now = clock.Now
	ctx := context.Background()

	limiter.Allow(ctx, "old")
	clock.Advance(2 * time.Hour)
	limiter.Allow(ctx, "fresh")

	limiter.cleanup()

	if limiter.Size() != 1 {
		t.Errorf("Size() = %d after cleanup, want 1", limiter.Size())
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	limiter := NewRateLimiterWithConfig(ratelimit.Config{EventsPerSecond: 1, Burst: 1}, 10*time.Millisecond, time.Hour)
	limiter.StartCleanup(context.Background())
	time.Sleep(25 * time.Millisecond)

	limiter.Stop()
	limiter.Stop()
}
