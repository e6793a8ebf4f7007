// Package reconcile advances pending transfer records toward a terminal
// status by polling chain status providers with per-transfer exponential
// backoff. One reconciler instance serves one consuming context (a
// session); its poll state and notified set are session-scoped and never
// shared between instances.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hihodl/sendcore/service/chainstatus"
	"github.com/hihodl/sendcore/service/ledger"
	"github.com/hihodl/sendcore/service/metrics"
	"github.com/hihodl/sendcore/service/notify"
)

// RecordSource supplies the merged, deduplicated record list. It is
// recomputed by the store layer on every tick; the reconciler treats it
// as read-only input.
type RecordSource interface {
	Records(ctx context.Context) ([]ledger.TransferRecord, error)
}

// pollState tracks per-transfer backoff. Created lazily on first sight,
// deleted when the record leaves the pending set.
type pollState struct {
	attempts      int
	lastAttemptAt time.Time
}

// Options configures a Reconciler.
type Options struct {
	Source    RecordSource
	Canonical ledger.Store
	// Legacy is patched best-effort on status changes; may be nil.
	Legacy   ledger.Store
	Provider chainstatus.Provider
	Sink     notify.Sink
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// TickInterval defaults to one second.
	TickInterval time.Duration

	// Now defaults to time.Now; tests inject a fake clock.
	Now func() time.Time

	// OnChange, if set, is called after every applied status change.
	OnChange func(rec ledger.TransferRecord)
}

// Reconciler owns the polling loop. All shared maps are guarded by mu:
// several UI surfaces could in principle drive independent reconcilers
// over the same records, and the runtime here is multi-goroutine.
type Reconciler struct {
	source    RecordSource
	canonical ledger.Store
	legacy    ledger.Store
	provider  chainstatus.Provider
	sink      notify.Sink
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tick      time.Duration
	now       func() time.Time
	onChange  func(ledger.TransferRecord)

	mu          sync.Mutex
	poll        map[string]*pollState
	notified    map[string]struct{}
	paused      bool
	lastTickErr error
}

// New creates a reconciler. It does not start polling; call Start.
func New(opts Options) *Reconciler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reconciler{
		source:    opts.Source,
		canonical: opts.Canonical,
		legacy:    opts.Legacy,
		provider:  opts.Provider,
		sink:      opts.Sink,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		tick:      opts.TickInterval,
		now:       opts.Now,
		onChange:  opts.OnChange,
		poll:      make(map[string]*pollState),
		notified:  make(map[string]struct{}),
	}
}

// Start runs the polling loop until the returned stop function is called
// or ctx is cancelled. The next tick is scheduled only after the current
// tick's loop body completes, so a record is never polled re-entrantly.
func (r *Reconciler) Start(ctx context.Context) (stop func()) {
	loopCtx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			if loopCtx.Err() != nil {
				return
			}
			if !r.isPaused() {
				if err := r.Tick(loopCtx); err != nil && loopCtx.Err() == nil {
					r.logger.Warn("reconcile tick failed", "error", err)
				}
			}
			select {
			case <-loopCtx.Done():
				return
			case <-time.After(r.tick):
			}
		}
	}()

	return cancel
}

// Pause stops new polls without discarding poll state: attempts and
// backoff survive a focus loss and resume where they left off.
func (r *Reconciler) Pause() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
}

// Resume re-enables polling after a Pause.
func (r *Reconciler) Resume() {
	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()
}

func (r *Reconciler) isPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// LastTickError returns the coarse "syncing had an error" signal from
// the most recent tick: nil when every due poll succeeded. Per-record
// provider errors are folded in here, never surfaced as record failures.
func (r *Reconciler) LastTickError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTickErr
}

// Tick runs one reconciliation pass. Exported so tests and the CLI's
// one-shot mode can drive the loop manually.
func (r *Reconciler) Tick(ctx context.Context) error {
	start := r.now()

	records, err := r.source.Records(ctx)
	if err != nil {
		r.setTickErr(err)
		r.metrics.RecordTick("source_error", time.Since(start).Seconds())
		return err
	}

	pending := make(map[string]struct{})
	var tickErrs []error

	for _, rec := range records {
		if ctx.Err() != nil {
			// Cancelled mid-tick: discard rather than apply.
			return ctx.Err()
		}
		if rec.Kind != ledger.KindTx || rec.Status.Terminal() || rec.TxHash == "" {
			continue
		}
		pending[rec.ID] = struct{}{}

		if err := r.reconcileOne(ctx, rec); err != nil {
			tickErrs = append(tickErrs, err)
		}
	}

	r.prune(pending)
	r.metrics.SetPendingTransfers(len(pending))

	tickErr := errors.Join(tickErrs...)
	r.setTickErr(tickErr)

	outcome := "ok"
	if tickErr != nil {
		outcome = "error"
	}
	r.metrics.RecordTick(outcome, time.Since(start).Seconds())
	return nil
}

// reconcileOne polls a single candidate if it is due. Provider errors
// count toward the attempt budget exactly like a "still pending" answer.
func (r *Reconciler) reconcileOne(ctx context.Context, rec ledger.TransferRecord) error {
	now := r.now()

	r.mu.Lock()
	ps, ok := r.poll[rec.ID]
	if !ok {
		ps = &pollState{}
		r.poll[rec.ID] = ps
	}
	if ps.attempts >= MaxAttempts {
		r.mu.Unlock()
		return r.markStale(ctx, rec)
	}
	if !ps.lastAttemptAt.IsZero() && now.Sub(ps.lastAttemptAt) < Delay(ps.attempts) {
		r.mu.Unlock()
		return nil
	}
	ps.attempts++
	ps.lastAttemptAt = now
	r.mu.Unlock()

	status, err := r.provider.PollStatus(ctx, rec.Chain, rec.TxHash)
	if ctx.Err() != nil {
		// The tick was cancelled while the request was in flight;
		// discard the result rather than applying it.
		return ctx.Err()
	}
	if err != nil {
		r.logger.Debug("status poll failed",
			"id", rec.ID,
			"chain", rec.Chain,
			"error", err,
		)
		return err
	}

	switch {
	case status == chainstatus.StatusFailed:
		return r.applyStatus(ctx, rec, ledger.StatusFailed)
	case status.Settled():
		return r.applyStatus(ctx, rec, ledger.StatusConfirmed)
	default:
		// Still pending; nothing to apply this tick.
		return nil
	}
}

// applyStatus writes the new status to the canonical store, patches the
// legacy store best-effort, and fires the completion notification
// exactly once per record id.
func (r *Reconciler) applyStatus(ctx context.Context, rec ledger.TransferRecord, status ledger.Status) error {
	if err := r.canonical.PatchStatus(ctx, rec.ID, status); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return err
	}
	if r.legacy != nil {
		if err := r.legacy.PatchStatus(ctx, rec.ID, status); err != nil {
			r.logger.Warn("legacy status patch failed", "id", rec.ID, "error", err)
		}
	}

	r.metrics.RecordStatusTransition(string(status))
	r.logger.Info("transfer status updated",
		"id", rec.ID,
		"chain", rec.Chain,
		"status", status,
	)

	r.mu.Lock()
	delete(r.poll, rec.ID)
	_, alreadyNotified := r.notified[rec.ID]
	if status == ledger.StatusConfirmed {
		r.notified[rec.ID] = struct{}{}
	}
	r.mu.Unlock()

	if status == ledger.StatusConfirmed && !alreadyNotified {
		err := r.sink.Notify(ctx, rec.Amount, strings.ToUpper(rec.TokenID), rec.ThreadID)
		r.metrics.RecordNotification(err)
		if err != nil {
			// Best-effort: the status update stands regardless.
			r.logger.Warn("completion notification failed", "id", rec.ID, "error", err)
		}
	}

	if r.onChange != nil {
		updated := rec
		updated.Status = status
		r.onChange(updated)
	}
	return nil
}

// markStale resolves the exhausted-attempts case explicitly: rather than
// silently dropping the record from polling while the UI shows it
// pending forever, it transitions to the stale status.
func (r *Reconciler) markStale(ctx context.Context, rec ledger.TransferRecord) error {
	r.metrics.RecordStale()
	r.logger.Warn("transfer exhausted poll attempts, marking stale",
		"id", rec.ID,
		"chain", rec.Chain,
		"attempts", MaxAttempts,
	)
	return r.applyStatus(ctx, rec, ledger.StatusStale)
}

// prune drops poll state for records that left the pending set (by
// reaching a terminal status or disappearing from the merged list).
func (r *Reconciler) prune(pending map[string]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.poll {
		if _, ok := pending[id]; !ok {
			delete(r.poll, id)
		}
	}
}

func (r *Reconciler) setTickErr(err error) {
	r.mu.Lock()
	r.lastTickErr = err
	r.mu.Unlock()
}
