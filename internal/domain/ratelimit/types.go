// Package ratelimit provides rate limiting domain types.
package ratelimit

import (
	"fmt"
	"time"
)

// Config defines a token bucket: EventsPerSecond refill rate and Burst capacity.
type Config struct {
	EventsPerSecond float64
	Burst           int
}

// Result contains the result of a rate limit check.
type Result struct {
	Allowed bool

	// RetryAfter is how long the caller should wait. Zero when Allowed.
	RetryAfter time.Duration
}

// keyPrefix namespaces every rate limit key.
const keyPrefix = "ratelimit"

// UserKey returns the limiter key of a catalog user.
// Example: UserKey("alice") -> "ratelimit:user:alice"
func UserKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, userID)
}
