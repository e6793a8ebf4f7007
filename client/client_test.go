package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hihodl/sendcore/service/balances"
	"github.com/hihodl/sendcore/service/funding"
	"github.com/hihodl/sendcore/service/ledger"
	"github.com/hihodl/sendcore/service/recipient"
	"github.com/hihodl/sendcore/service/server"
)

func newTestService(t *testing.T) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	canonical := ledger.NewMemoryStore()
	view := &ledger.View{Canonical: canonical}

	srv := server.New(
		":0",
		view,
		canonical,
		recipient.NewResolver("base"),
		funding.NewDiagnostician(funding.DefaultFeeTable(), logger),
		nil,
		nil,
		nil,
		nil,
		logger,
	).WithBalances(balances.NewStaticReader(map[string]balances.Snapshot{
		balances.AccountDaily: {"usdc": {"base": 50}},
	}))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, nil, logger)
}

func TestClient_Resolve(t *testing.T) {
	cl := newTestService(t)
	ctx := context.Background()

	result, err := cl.Resolve(ctx, "vitalik.eth")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	require.NotNil(t, result.Recipient)
	assert.Equal(t, recipient.KindENS, result.Recipient.Kind)
	assert.False(t, result.Sendable, "unresolved ENS is not directly sendable")

	result, err = cl.Resolve(ctx, "not a recipient !!")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestClient_Diagnose(t *testing.T) {
	cl := newTestService(t)
	ctx := context.Background()

	result, err := cl.Diagnose(ctx, DiagnoseRequest{
		TokenID:   "usdc",
		Chain:     "base",
		Amount:    10,
		Recipient: "@alice",
		Balances:  balances.Snapshot{"usdc": {"base": 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, funding.ProblemNone, result.Problem)

	result, err = cl.Diagnose(ctx, DiagnoseRequest{
		TokenID:   "usdc",
		Chain:     "base",
		Amount:    10,
		Recipient: "@alice",
		Balances:  balances.Snapshot{},
	})
	require.NoError(t, err)
	assert.Equal(t, funding.ProblemNoBalanceAnyToken, result.Problem)
}

func TestClient_SubmitAndListTransfers(t *testing.T) {
	cl := newTestService(t)
	ctx := context.Background()

	rec, err := cl.SubmitTransfer(ctx, SubmitTransferRequest{
		ThreadID: "thread-1",
		TokenID:  "usdc",
		Chain:    "solana",
		Amount:   12.5,
		TxHash:   "sig-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, ledger.StatusPending, rec.Status)

	records, err := cl.ListTransfers(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)

	records, err = cl.ListTransfers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = cl.SubmitTransfer(ctx, SubmitTransferRequest{
		ThreadID: "thread-1",
		TokenID:  "usdc",
		Chain:    "solana",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount must be positive")
}

func TestClient_GetBalances(t *testing.T) {
	cl := newTestService(t)
	ctx := context.Background()

	snap, err := cl.GetBalances(ctx, balances.AccountDaily)
	require.NoError(t, err)
	assert.Equal(t, 50.0, snap.TokenTotal("usdc"))
}

func TestClient_ReconcilerNotConfigured(t *testing.T) {
	cl := newTestService(t)
	ctx := context.Background()

	err := cl.PauseReconciler(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconciler not configured")
}
