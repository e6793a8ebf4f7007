// Package notify delivers payment-completion notifications. Delivery is
// fire-and-forget from the reconciler's perspective: a failed
// notification must never block a status update.
package notify

import (
	"context"
	"strings"
	"time"
)

// PaymentEvent is the payload published for a completed transfer.
type PaymentEvent struct {
	Amount       float64   `json:"amount"`
	TokenSymbol  string    `json:"token_symbol"`
	Counterparty string    `json:"counterparty"`
	PublishedAt  time.Time `json:"published_at"`
}

// Sink receives payment-completion notifications.
type Sink interface {
	// Notify publishes one completion notification. Best-effort:
	// callers log errors and move on.
	Notify(ctx context.Context, amount float64, tokenSymbol, counterparty string) error

	// Close releases the underlying connection.
	Close() error
}

// NopSink discards notifications. Used by one-shot tooling that only
// cares about status reconciliation.
type NopSink struct{}

func (NopSink) Notify(context.Context, float64, string, string) error { return nil }
func (NopSink) Close() error                                          { return nil }

// sanitizeToken strips characters that are not valid in a NATS subject
// token. Counterparty ids are thread ids or aliases and are generally
// clean, but a subject must never contain ".", "*" or ">".
func sanitizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ':
			return '_'
		}
		return r
	}, s)
}
