package balances

import (
	"context"
	"sync"
)

// Snapshot is a normalized view of a single account's holdings:
// tokenId (lowercase) -> chain key -> amount.
type Snapshot map[string]map[string]float64

// Total returns the sum of every token balance on every chain.
func (s Snapshot) Total() float64 {
	var total float64
	for _, chains := range s {
		for _, amount := range chains {
			total += amount
		}
	}
	return total
}

// TokenTotal returns the sum of the given token's balance across all chains.
func (s Snapshot) TokenTotal(tokenID string) float64 {
	var total float64
	for _, amount := range s[tokenID] {
		total += amount
	}
	return total
}

// Chains returns the per-chain balances for a token, or nil if the token
// has no entries at all (unsupported token).
func (s Snapshot) Chains(tokenID string) map[string]float64 {
	return s[tokenID]
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for token, chains := range s {
		cc := make(map[string]float64, len(chains))
		for chain, amount := range chains {
			cc[chain] = amount
		}
		out[token] = cc
	}
	return out
}

// Reader produces the latest known balance snapshot for an account.
// Staleness tolerance is a caller concern.
type Reader interface {
	GetBalances(ctx context.Context, accountID string) (Snapshot, error)
}

// Known account identifiers. Each account is a logical sub-wallet with
// independent balances.
const (
	AccountDaily   = "daily"
	AccountSavings = "savings"
	AccountSocial  = "social"
)

// Accounts lists all known account identifiers.
func Accounts() []string {
	return []string{AccountDaily, AccountSavings, AccountSocial}
}

// StaticReader serves snapshots from an in-memory map. Used in tests and
// by the CLI when balances are supplied from a file.
type StaticReader struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewStaticReader creates a reader over the given account -> snapshot map.
func NewStaticReader(snapshots map[string]Snapshot) *StaticReader {
	if snapshots == nil {
		snapshots = make(map[string]Snapshot)
	}
	return &StaticReader{snapshots: snapshots}
}

// GetBalances returns the snapshot for the account, or an empty snapshot
// for unknown accounts.
func (r *StaticReader) GetBalances(_ context.Context, accountID string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.snapshots[accountID]
	if !ok {
		return Snapshot{}, nil
	}
	// Hand out a copy so callers can't mutate the shared map.
	return snap.Clone(), nil
}

// Set replaces the snapshot for an account.
func (r *StaticReader) Set(accountID string, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[accountID] = snap
}
