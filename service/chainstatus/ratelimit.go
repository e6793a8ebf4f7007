package chainstatus

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles calls to an upstream provider. Status
// endpoints are typically rate-limited per API key; waiting here keeps
// the backoff accounting in the reconciler honest (a throttled call is
// a slow call, not an error).
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// RateLimited wraps a provider with a token-bucket limiter.
func RateLimited(inner Provider, limiter *rate.Limiter) *RateLimitedProvider {
	return &RateLimitedProvider{inner: inner, limiter: limiter}
}

// PollStatus waits for limiter budget, then delegates.
func (p *RateLimitedProvider) PollStatus(ctx context.Context, chain, txHash string) (Status, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return StatusPending, fmt.Errorf("rate limiter wait: %w", err)
	}
	return p.inner.PollStatus(ctx, chain, txHash)
}
