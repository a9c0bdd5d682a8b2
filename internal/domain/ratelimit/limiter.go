package ratelimit

import "context"

// RateLimiter decides whether an event identified by key may proceed.
//
// Allow consumes one token when it returns Allowed. A refused call consumes
// nothing and reports in RetryAfter when the next token will be available.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
