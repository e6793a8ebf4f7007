package reconcile

import (
	"math"
	"time"
)

const (
	// baseDelay is the poll delay after the first attempt.
	baseDelay = 1000 * time.Millisecond

	// maxDelay caps the exponential backoff.
	maxDelay = 15000 * time.Millisecond

	// backoffFactor is the exponential growth factor.
	backoffFactor = 1.6

	// MaxAttempts is the polling budget per transfer. A transfer still
	// unresolved after this many polls is marked stale.
	MaxAttempts = 30
)

// Delay returns the wait before the next poll after `attempts` polls:
// min(15s, round(1s * 1.6^attempts)). Non-decreasing in attempts.
func Delay(attempts int) time.Duration {
	ms := math.Round(1000 * math.Pow(backoffFactor, float64(attempts)))
	if d := time.Duration(ms) * time.Millisecond; d < maxDelay {
		return d
	}
	return maxDelay
}
