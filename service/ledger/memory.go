package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store with change notification. Used by
// tests and by the CLI's one-shot reconcile mode; it also demonstrates
// the subscription contract the server's SSE layer builds on.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]TransferRecord
	subs    map[chan struct{}]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]TransferRecord),
		subs:    make(map[chan struct{}]struct{}),
	}
}

// GetAll returns records for a thread (all threads when threadID is
// empty), sorted ascending by timestamp.
func (s *MemoryStore) GetAll(_ context.Context, threadID string) ([]TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TransferRecord
	for _, rec := range s.records {
		if threadID == "" || rec.ThreadID == threadID {
			out = append(out, rec)
		}
	}
	return Merge(out), nil
}

// Upsert inserts or replaces a record and notifies subscribers.
func (s *MemoryStore) Upsert(_ context.Context, rec TransferRecord) error {
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	s.notify()
	return nil
}

// PatchStatus updates a record's status and notifies subscribers.
func (s *MemoryStore) PatchStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	rec.Status = status
	s.records[id] = rec
	s.mu.Unlock()
	s.notify()
	return nil
}

// Subscribe returns a channel that receives a signal after every change,
// and a cancel function that must be called to release the subscription.
// Signals are coalesced: a slow consumer sees at least one signal for any
// burst of changes.
func (s *MemoryStore) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *MemoryStore) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
