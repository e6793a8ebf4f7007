// Package client is the HTTP client for the sendcore service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hihodl/sendcore/service/balances"
	"github.com/hihodl/sendcore/service/funding"
	"github.com/hihodl/sendcore/service/ledger"
	"github.com/hihodl/sendcore/service/recipient"
)

// Client is the HTTP client for the sendcore service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ResolveResult is the server's answer to a recipient resolution request.
type ResolveResult struct {
	Matched   bool                       `json:"matched"`
	Recipient *recipient.ParsedRecipient `json:"recipient,omitempty"`
	Sendable  bool                       `json:"sendable"`
}

// Resolve classifies free-form recipient input.
func (c *Client) Resolve(ctx context.Context, input string) (*ResolveResult, error) {
	var result ResolveResult
	err := c.postJSON(ctx, "/api/v1/recipient/resolve", map[string]string{"input": input}, http.StatusOK, &result)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("recipient resolved", "matched", result.Matched)
	return &result, nil
}

// DiagnoseRequest mirrors the server's diagnosis request body.
type DiagnoseRequest struct {
	TokenID        string                       `json:"token_id"`
	Chain          string                       `json:"chain"`
	Amount         float64                      `json:"amount"`
	Recipient      string                       `json:"recipient"`
	Online         *bool                        `json:"online,omitempty"`
	PendingTxCount int                          `json:"pending_tx_count"`
	Balances       balances.Snapshot            `json:"balances"`
	OtherAccounts  map[string]balances.Snapshot `json:"other_accounts,omitempty"`
}

// Diagnose evaluates transfer feasibility.
func (c *Client) Diagnose(ctx context.Context, req DiagnoseRequest) (*funding.Result, error) {
	var result funding.Result
	if err := c.postJSON(ctx, "/api/v1/diagnose", req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	c.logger.Debug("transfer diagnosed", "problem", result.Problem)
	return &result, nil
}

// ListTransfers retrieves the merged transfer records for a thread. An
// empty threadID lists all threads.
func (c *Client) ListTransfers(ctx context.Context, threadID string) ([]ledger.TransferRecord, error) {
	path := "/api/v1/transfers"
	if threadID != "" {
		path = fmt.Sprintf("/api/v1/threads/%s/transfers", url.PathEscape(threadID))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var body struct {
		Transfers []ledger.TransferRecord `json:"transfers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Transfers, nil
}

// SubmitTransferRequest mirrors the server's transfer submission body.
type SubmitTransferRequest struct {
	ID        string  `json:"id,omitempty"`
	ThreadID  string  `json:"thread_id"`
	Kind      string  `json:"kind,omitempty"`
	Direction string  `json:"direction,omitempty"`
	TokenID   string  `json:"token_id"`
	Chain     string  `json:"chain"`
	Amount    float64 `json:"amount"`
	TxHash    string  `json:"tx_hash,omitempty"`
}

// SubmitTransfer records a transfer; the server reconciles it to a
// terminal status from there.
func (c *Client) SubmitTransfer(ctx context.Context, req SubmitTransferRequest) (*ledger.TransferRecord, error) {
	var rec ledger.TransferRecord
	if err := c.postJSON(ctx, "/api/v1/transfers", req, http.StatusCreated, &rec); err != nil {
		return nil, err
	}
	c.logger.Debug("transfer submitted", "id", rec.ID, "thread_id", rec.ThreadID)
	return &rec, nil
}

// GetBalances retrieves an account's balance snapshot.
func (c *Client) GetBalances(ctx context.Context, accountID string) (balances.Snapshot, error) {
	u := fmt.Sprintf("%s/api/v1/accounts/%s/balances", c.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var body struct {
		Balances balances.Snapshot `json:"balances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Balances, nil
}

// PauseReconciler pauses status polling on the server.
func (c *Client) PauseReconciler(ctx context.Context) error {
	return c.postJSON(ctx, "/api/v1/reconcile/pause", nil, http.StatusNoContent, nil)
}

// ResumeReconciler resumes status polling on the server.
func (c *Client) ResumeReconciler(ctx context.Context) error {
	return c.postJSON(ctx, "/api/v1/reconcile/resume", nil, http.StatusNoContent, nil)
}

// postJSON posts body (may be nil) and decodes the response into out
// (may be nil) when the status matches wantStatus.
func (c *Client) postJSON(ctx context.Context, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.parseErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
