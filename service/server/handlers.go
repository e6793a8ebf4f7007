package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hihodl/sendcore/service/balances"
	"github.com/hihodl/sendcore/service/funding"
	"github.com/hihodl/sendcore/service/ledger"
	"github.com/hihodl/sendcore/service/metrics"
	"github.com/hihodl/sendcore/service/recipient"
	"github.com/hihodl/sendcore/service/reconcile"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for any request here
	maxInputLength     = 512     // recipient inputs; IBANs top out at 34 chars
	maxThreadIDLength  = 128
)

// handleResolveRecipient returns a handler that classifies free-form
// recipient input.
// POST /api/v1/recipient/resolve
func handleResolveRecipient(resolver *recipient.Resolver, logger *slog.Logger) http.Handler {
	type request struct {
		Input string `json:"input"`
	}
	type response struct {
		Matched   bool                       `json:"matched"`
		Recipient *recipient.ParsedRecipient `json:"recipient,omitempty"`
		Sendable  bool                       `json:"sendable"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Input) > maxInputLength {
			writeError(w, fmt.Sprintf("input exceeds %d characters", maxInputLength), http.StatusBadRequest)
			return
		}

		parsed := resolver.Resolve(req.Input)
		if parsed == nil {
			logger.Debug("recipient input did not match any rule")
			writeJSON(w, response{Matched: false}, http.StatusOK)
			return
		}

		logger.Debug("recipient resolved", "kind", parsed.Kind, "valid", parsed.Valid())
		writeJSON(w, response{
			Matched:   true,
			Recipient: parsed,
			Sendable:  resolver.IsSendableAddress(req.Input),
		}, http.StatusOK)
	})
}

// diagnoseRequest is the wire shape of a funding diagnosis request. The
// balance snapshots come from the client because the app diagnoses
// against what the user currently sees, cached balances included.
type diagnoseRequest struct {
	TokenID        string                       `json:"token_id"`
	Chain          string                       `json:"chain"`
	Amount         float64                      `json:"amount"`
	Recipient      string                       `json:"recipient"`
	Online         *bool                        `json:"online,omitempty"`
	PendingTxCount int                          `json:"pending_tx_count"`
	Balances       balances.Snapshot            `json:"balances"`
	OtherAccounts  map[string]balances.Snapshot `json:"other_accounts,omitempty"`
}

// handleDiagnose returns a handler that evaluates transfer feasibility.
// POST /api/v1/diagnose
func handleDiagnose(diag *funding.Diagnostician, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req diagnoseRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Online defaults to true when omitted; a JSON false must not be
		// mistaken for an absent field.
		online := true
		if req.Online != nil {
			online = *req.Online
		}

		result := diag.Diagnose(funding.Context{
			TokenID:        req.TokenID,
			Chain:          req.Chain,
			Amount:         req.Amount,
			Recipient:      req.Recipient,
			Online:         online,
			PendingTxCount: req.PendingTxCount,
			Balances:       req.Balances,
			OtherAccounts:  req.OtherAccounts,
		})

		m.RecordDiagnosis(string(result.Problem))
		logger.Debug("funding diagnosed",
			"token", req.TokenID,
			"chain", req.Chain,
			"problem", result.Problem,
		)
		writeJSON(w, result, http.StatusOK)
	})
}

// handleListTransfers returns a handler that lists the merged transfer
// records for a thread, or for all threads when no thread is given.
// GET /api/v1/threads/{thread_id}/transfers
// GET /api/v1/transfers
func handleListTransfers(view *ledger.View, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		threadID := r.PathValue("thread_id")
		if err := validateThreadID(threadID, false); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		records, err := view.Records(r.Context(), threadID)
		if err != nil {
			logger.Error("failed to list transfers", "thread_id", threadID, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("transfers listed", "thread_id", threadID, "count", len(records))
		writeJSON(w, map[string]any{
			"thread_id": threadID,
			"transfers": records,
		}, http.StatusOK)
	})
}

// submitTransferRequest is the wire shape of a transfer submission.
type submitTransferRequest struct {
	ID        string  `json:"id,omitempty"`
	ThreadID  string  `json:"thread_id"`
	Kind      string  `json:"kind,omitempty"`
	Direction string  `json:"direction,omitempty"`
	TokenID   string  `json:"token_id"`
	Chain     string  `json:"chain"`
	Amount    float64 `json:"amount"`
	TxHash    string  `json:"tx_hash,omitempty"`
}

// handleSubmitTransfer returns a handler that records a submitted
// transfer as pending. The reconciler picks it up on its next tick.
// POST /api/v1/transfers
func handleSubmitTransfer(store ledger.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req submitTransferRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateThreadID(req.ThreadID, true); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.TokenID == "" {
			writeError(w, "token_id is required", http.StatusBadRequest)
			return
		}
		if req.Chain == "" {
			writeError(w, "chain is required", http.StatusBadRequest)
			return
		}
		if req.Amount <= 0 {
			writeError(w, "amount must be positive", http.StatusBadRequest)
			return
		}

		kind := ledger.RecordKind(req.Kind)
		switch kind {
		case "":
			kind = ledger.KindTx
		case ledger.KindTx, ledger.KindRequest:
		default:
			writeError(w, fmt.Sprintf("unknown kind %q", req.Kind), http.StatusBadRequest)
			return
		}

		direction := ledger.Direction(req.Direction)
		switch direction {
		case "":
			direction = ledger.DirectionOut
		case ledger.DirectionIn, ledger.DirectionOut:
		default:
			writeError(w, fmt.Sprintf("unknown direction %q", req.Direction), http.StatusBadRequest)
			return
		}

		rec := ledger.TransferRecord{
			ID:        req.ID,
			ThreadID:  req.ThreadID,
			Kind:      kind,
			Direction: direction,
			TokenID:   req.TokenID,
			Chain:     req.Chain,
			Amount:    req.Amount,
			Status:    ledger.StatusPending,
			TxHash:    req.TxHash,
			Timestamp: time.Now().UTC(),
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}

		if err := store.Upsert(r.Context(), rec); err != nil {
			logger.Error("failed to record transfer", "id", rec.ID, "error", err)
			writeError(w, "failed to record transfer", http.StatusInternalServerError)
			return
		}

		logger.Info("transfer recorded",
			"id", rec.ID,
			"thread_id", rec.ThreadID,
			"chain", rec.Chain,
			"amount", rec.Amount,
		)
		writeJSON(w, rec, http.StatusCreated)
	})
}

// handleGetBalances returns a handler that reads an account's balance
// snapshot. GET /api/v1/accounts/{account_id}/balances
func handleGetBalances(reader balances.Reader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := r.PathValue("account_id")
		if accountID == "" {
			writeError(w, "account_id is required", http.StatusBadRequest)
			return
		}

		snap, err := reader.GetBalances(r.Context(), accountID)
		if err != nil {
			logger.Error("failed to read balances", "account_id", accountID, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{
			"account_id": accountID,
			"balances":   snap,
			"total":      snap.Total(),
		}, http.StatusOK)
	})
}

// handleReconcileStatus reports whether the reconciler's last tick
// succeeded. GET /api/v1/reconcile/status
func handleReconcileStatus(rec *reconcile.Reconciler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			writeError(w, "reconciler not configured", http.StatusServiceUnavailable)
			return
		}
		resp := map[string]any{"syncing": true}
		if err := rec.LastTickError(); err != nil {
			resp["syncing"] = false
			resp["error"] = err.Error()
		}
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleReconcilePause pauses polling without discarding backoff state.
// POST /api/v1/reconcile/pause
func handleReconcilePause(rec *reconcile.Reconciler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			writeError(w, "reconciler not configured", http.StatusServiceUnavailable)
			return
		}
		rec.Pause()
		logger.Info("reconciler paused")
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleReconcileResume resumes polling after a pause.
// POST /api/v1/reconcile/resume
func handleReconcileResume(rec *reconcile.Reconciler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			writeError(w, "reconciler not configured", http.StatusServiceUnavailable)
			return
		}
		rec.Resume()
		logger.Info("reconciler resumed")
		w.WriteHeader(http.StatusNoContent)
	})
}

// decodeJSON decodes a size-limited JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// validateThreadID checks thread id length (and presence when required).
func validateThreadID(threadID string, required bool) error {
	if threadID == "" {
		if required {
			return fmt.Errorf("thread_id is required")
		}
		return nil
	}
	if len(threadID) > maxThreadIDLength {
		return fmt.Errorf("thread_id exceeds %d characters", maxThreadIDLength)
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
