package notify

import (
	"context"
	"sync"
	"time"
)

// MockSink records notifications for tests.
type MockSink struct {
	mu     sync.RWMutex
	events []PaymentEvent
	err    error
	closed bool
}

// NewMockSink creates an empty mock sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Notify records the event and returns any configured error.
func (m *MockSink) Notify(_ context.Context, amount float64, tokenSymbol, counterparty string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.events = append(m.events, PaymentEvent{
		Amount:       amount,
		TokenSymbol:  tokenSymbol,
		Counterparty: counterparty,
		PublishedAt:  time.Now().UTC(),
	})
	return nil
}

// Close marks the sink as closed.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FailWith makes every subsequent Notify return err.
func (m *MockSink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Events returns a copy of the recorded events.
func (m *MockSink) Events() []PaymentEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PaymentEvent, len(m.events))
	copy(out, m.events)
	return out
}
