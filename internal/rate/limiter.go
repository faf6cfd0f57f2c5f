// Package rate limits abusive callers of the code-send and login endpoints,
// keyed by client IP.
package rate

import (
	"context"
	"time"
)

// Limiter reports whether a caller identified by key may proceed. When
// denied, retryAfter tells the caller how long the window has left.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (allowed bool, retryAfter time.Duration, err error)
}
