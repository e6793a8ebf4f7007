package chainstatus

import (
	"context"
	"sync"
)

// MockProvider is a scriptable Provider for tests. Each hash can be
// given a sequence of statuses to step through; the last entry repeats
// once the script is exhausted. Unknown hashes report pending.
type MockProvider struct {
	mu      sync.Mutex
	scripts map[string][]Status
	cursor  map[string]int
	err     error
	calls   []string
}

// NewMockProvider creates an empty mock.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		scripts: make(map[string][]Status),
		cursor:  make(map[string]int),
	}
}

// Script sets the status sequence for a hash.
func (m *MockProvider) Script(txHash string, statuses ...Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[txHash] = statuses
	m.cursor[txHash] = 0
}

// FailWith makes every subsequent poll return err.
func (m *MockProvider) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// PollStatus steps through the scripted sequence for the hash.
func (m *MockProvider) PollStatus(_ context.Context, chain, txHash string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, chain+"/"+txHash)

	if m.err != nil {
		return StatusPending, m.err
	}

	script, ok := m.scripts[txHash]
	if !ok || len(script) == 0 {
		return StatusPending, nil
	}

	i := m.cursor[txHash]
	if i >= len(script) {
		i = len(script) - 1
	} else {
		m.cursor[txHash]++
	}
	return script[i], nil
}

// Calls returns the chain/hash pairs polled so far.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
