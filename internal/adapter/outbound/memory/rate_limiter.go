package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openheads/headcatalog/internal/domain/ratelimit"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements ratelimit.RateLimiter with one token bucket per key.
// Keys idle for longer than maxTTL are dropped by the cleanup goroutine.
type RateLimiter struct {
	config          ratelimit.Config
	entries         map[string]*limiterEntry
	mu              sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
	cleanupInterval time.Duration
	maxTTL          time.Duration
	now             func() time.Time
}

// NewRateLimiter creates a limiter with a 5 minute cleanup interval and a 1 hour TTL.
func NewRateLimiter(config ratelimit.Config) *RateLimiter {
	return NewRateLimiterWithConfig(config, 5*time.Minute, time.Hour)
}

// NewRateLimiterWithConfig creates a limiter with custom cleanup settings.
func NewRateLimiterWithConfig(config ratelimit.Config, cleanupInterval, maxTTL time.Duration) *RateLimiter {
	if config.EventsPerSecond <= 0 {
		config.EventsPerSecond = 1
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &RateLimiter{
		config:          config,
		entries:         make(map[string]*limiterEntry),
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
		maxTTL:          maxTTL,
		now:             time.Now,
	}
}

// Allow takes one token from key's bucket if available.
func (r *RateLimiter) Allow(_ context.Context, key string) (ratelimit.Result, error) {
	r.mu.Lock()
	now := r.now()
	e, ok := r.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(r.config.EventsPerSecond), r.config.Burst)}
		r.entries[key] = e
	}
	e.lastSeen = now
	r.mu.Unlock()

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return ratelimit.Result{RetryAfter: time.Second}, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return ratelimit.Result{RetryAfter: delay}, nil
	}
	return ratelimit.Result{Allowed: true}, nil
}

// StartCleanup starts the background cleanup goroutine. It stops when ctx
// is cancelled or Stop is called.
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.maxTTL)
	cleaned := 0
	for key, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		slog.Debug("rate limiter cleanup completed",
			"cleaned_keys", cleaned,
			"remaining_keys", len(r.entries))
	}
}

// Stop stops the cleanup goroutine and waits for it. Safe to call multiple times.
func (r *RateLimiter) Stop() {
	r.once.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Size returns the number of tracked keys.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var _ ratelimit.RateLimiter = (*RateLimiter)(nil)
