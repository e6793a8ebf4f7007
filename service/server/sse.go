package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hihodl/sendcore/service/ledger"
	"github.com/hihodl/sendcore/service/metrics"
)

// SSEPublisher fans transfer status changes out to Server-Sent Events
// connections. The reconciler feeds it through its OnChange hook, so
// every applied status transition reaches subscribed clients without
// polling the stores.
type SSEPublisher struct {
	mu     sync.RWMutex
	subs   map[chan ledger.TransferRecord]string
	closed bool
	logger *slog.Logger
}

// NewSSEPublisher creates an empty publisher.
func NewSSEPublisher(logger *slog.Logger) *SSEPublisher {
	return &SSEPublisher{
		subs:   make(map[chan ledger.TransferRecord]string),
		logger: logger,
	}
}

// Publish delivers a record to every subscriber whose thread filter
// matches. Slow consumers are skipped rather than blocked on: SSE is a
// live feed, the record list endpoint is the source of truth.
func (p *SSEPublisher) Publish(rec ledger.TransferRecord) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	for ch, threadID := range p.subs {
		if threadID != "" && threadID != rec.ThreadID {
			continue
		}
		select {
		case ch <- rec:
		default:
			p.logger.Warn("dropping SSE event for slow consumer", "id", rec.ID)
		}
	}
}

// Subscribe registers a connection. An empty threadID receives events
// for all threads. The cancel function must be called on disconnect.
func (p *SSEPublisher) Subscribe(threadID string) (<-chan ledger.TransferRecord, func()) {
	ch := make(chan ledger.TransferRecord, 16)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	p.subs[ch] = threadID
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

// Close disconnects all subscribers.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for ch := range p.subs {
		delete(p.subs, ch)
		close(ch)
	}
	if p.logger != nil {
		p.logger.Info("SSE publisher closed")
	}
	return nil
}

// handleStreamTransfers handles SSE streaming of transfer status changes.
// If the thread_id path parameter is empty, streams all threads.
func handleStreamTransfers(publisher *SSEPublisher, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		threadID := r.PathValue("thread_id")
		threadDesc := threadID
		if threadDesc == "" {
			threadDesc = "all threads"
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		events, cancel := publisher.Subscribe(threadID)
		defer cancel()

		m.RecordSSEConnectionChange(1)
		defer m.RecordSSEConnectionChange(-1)

		logger.DebugContext(r.Context(), "SSE client connected",
			"thread", threadDesc,
			"remote_addr", r.RemoteAddr,
		)

		fmt.Fprintf(w, "event: connected\ndata: {\"thread\":%q}\n\n", threadDesc)
		flusher.Flush()

		// Keepalive comments prevent proxies from timing out idle streams.
		keepalive := time.NewTicker(10 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				flusher.Flush()

			case rec, open := <-events:
				if !open {
					// Publisher closed during shutdown.
					return
				}
				data, err := json.Marshal(rec)
				if err != nil {
					logger.WarnContext(r.Context(), "failed to marshal event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: transfer\ndata: %s\n\n", data)
				flusher.Flush()
				m.RecordSSEEventSent()

				logger.DebugContext(r.Context(), "sent transfer event",
					"thread", rec.ThreadID,
					"id", rec.ID,
					"status", rec.Status,
				)

			case <-r.Context().Done():
				logger.DebugContext(r.Context(), "SSE client disconnected",
					"thread", threadDesc,
					"remote_addr", r.RemoteAddr,
				)
				return
			}
		}
	})
}
