// Package ledger holds the transfer record model and its stores. Records
// are append-only from the caller's point of view: they are created when
// a transfer is submitted, status-patched by the reconciler until they
// reach a terminal state, and never deleted.
package ledger

import (
	"context"
	"sort"
	"time"
)

// RecordKind distinguishes outgoing transactions from payment requests.
type RecordKind string

const (
	KindTx      RecordKind = "tx"
	KindRequest RecordKind = "request"
)

// Direction of a transfer relative to the account owner.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Status of a transfer record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"

	// StatusStale marks a transfer whose status could not be determined
	// within the polling attempt budget. Terminal for polling purposes
	// but distinct from failed: the chain may still settle it.
	StatusStale Status = "stale"
)

// Terminal reports whether no further polling is needed for the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusFailed, StatusCanceled, StatusStale:
		return true
	}
	return false
}

// TransferRecord is the canonical shape of a submitted transfer or
// request. IDs are globally unique per store; on id collision between
// stores the canonical store's record supersedes.
type TransferRecord struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id"`
	Kind      RecordKind `json:"kind"`
	Direction Direction  `json:"direction"`
	TokenID   string     `json:"token_id"`
	Chain     string     `json:"chain"`
	Amount    float64    `json:"amount"`
	Status    Status     `json:"status"`
	TxHash    string     `json:"tx_hash,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Store is the record repository contract. An empty threadID means all
// threads.
type Store interface {
	GetAll(ctx context.Context, threadID string) ([]TransferRecord, error)
	Upsert(ctx context.Context, rec TransferRecord) error
	PatchStatus(ctx context.Context, id string, status Status) error
}

// Merge combines record lists from multiple sources into a single
// deduplicated view. Records are keyed by id; a later source wins on
// collision, so callers pass the authoritative source last. The merged
// list is sorted ascending by timestamp (id as tiebreaker).
func Merge(sources ...[]TransferRecord) []TransferRecord {
	byID := make(map[string]TransferRecord)
	for _, source := range sources {
		for _, rec := range source {
			byID[rec.ID] = rec
		}
	}

	merged := make([]TransferRecord, 0, len(byID))
	for _, rec := range byID {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

// View presents the canonical and legacy stores as one logical record
// list. The legacy store is optional.
type View struct {
	Canonical Store
	Legacy    Store
}

// Records returns the merged, timestamp-sorted record list for a thread
// (or all threads when threadID is empty). The canonical store wins on
// id collisions.
func (v *View) Records(ctx context.Context, threadID string) ([]TransferRecord, error) {
	canonical, err := v.Canonical.GetAll(ctx, threadID)
	if err != nil {
		return nil, err
	}

	var legacy []TransferRecord
	if v.Legacy != nil {
		legacy, err = v.Legacy.GetAll(ctx, threadID)
		if err != nil {
			return nil, err
		}
	}

	return Merge(legacy, canonical), nil
}
