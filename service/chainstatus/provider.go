// Package chainstatus abstracts the per-chain transaction status
// providers the reconciler polls. Providers are idempotent and safe to
// call repeatedly; a provider error is distinct from a legitimate
// "still pending" status.
package chainstatus

import (
	"context"
	"errors"
	"fmt"
)

// Status is a provider-reported transaction status. The Solana-style
// providers report the full set; EVM-style providers report the
// pending/confirmed/failed subset.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFinalized Status = "finalized"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Settled reports whether the status counts as the success terminal for
// reconciliation purposes. Processed is excluded: a processed Solana
// transaction can still be rolled back, so the reconciler keeps polling.
func (s Status) Settled() bool {
	switch s {
	case StatusConfirmed, StatusFinalized:
		return true
	}
	return false
}

// Provider polls the status of one transaction hash on one chain.
type Provider interface {
	PollStatus(ctx context.Context, chain, txHash string) (Status, error)
}

// ErrNoProvider is returned when no provider is registered for a chain.
var ErrNoProvider = errors.New("no status provider for chain")

// Registry routes status polls to the provider registered for each
// chain key. It implements Provider itself.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register binds a chain key to a provider. Several chain keys may share
// one provider (all EVM L2s typically do not: each has its own RPC).
func (r *Registry) Register(chain string, p Provider) {
	r.providers[chain] = p
}

// PollStatus dispatches to the chain's provider.
func (r *Registry) PollStatus(ctx context.Context, chain, txHash string) (Status, error) {
	p, ok := r.providers[chain]
	if !ok {
		return StatusPending, fmt.Errorf("%w: %s", ErrNoProvider, chain)
	}
	return p.PollStatus(ctx, chain, txHash)
}

// Chains returns the registered chain keys.
func (r *Registry) Chains() []string {
	keys := make([]string, 0, len(r.providers))
	for k := range r.providers {
		keys = append(keys, k)
	}
	return keys
}
