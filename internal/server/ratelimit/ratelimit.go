// Package ratelimit limits requests per client key within a fixed window.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one request against a limiter. RetryAfter is
// set when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
