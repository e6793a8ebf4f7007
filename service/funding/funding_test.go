package funding

import (
	"testing"

	"github.com/hihodl/sendcore/service/balances"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseContext(snap balances.Snapshot) Context {
	return Context{
		TokenID:   "usdc",
		Chain:     "base",
		Amount:    10,
		Recipient: "@satoshi_21",
		Online:    true,
		Balances:  snap,
	}
}

func newTestDiagnostician() *Diagnostician {
	return NewDiagnostician(DefaultFeeTable(), nil)
}

func solutionActions(r Result) []Action {
	actions := make([]Action, len(r.Solutions))
	for i, s := range r.Solutions {
		actions[i] = s.Action
	}
	return actions
}

func TestDiagnose_NoBalanceAnyToken(t *testing.T) {
	d := newTestDiagnostician()

	ctx := baseContext(balances.Snapshot{"usdc": {"base": 0, "solana": 0}})
	ctx.OtherAccounts = map[string]balances.Snapshot{
		"savings": {"usdc": {"base": 50}},
	}

	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemNoBalanceAnyToken, r.Problem)
	assert.Equal(t, SeverityCritical, r.Severity)
	assert.Equal(t, []Action{ActionRequestPayment, ActionBuyCrypto, ActionReceiveFunds}, solutionActions(r))
	require.Len(t, r.OtherAccountsBalance, 1)
	assert.Equal(t, "savings", r.OtherAccountsBalance[0].Account)
	assert.Equal(t, 50.0, r.OtherAccountsBalance[0].Balance)

	// The problem is returned iff the account total is exactly zero.
	ctx.Balances = balances.Snapshot{"usdc": {"base": 0.000001}}
	r = d.Diagnose(ctx)
	assert.NotEqual(t, ProblemNoBalanceAnyToken, r.Problem)
}

func TestDiagnose_DegenerateInputs(t *testing.T) {
	d := newTestDiagnostician()
	snap := balances.Snapshot{"usdc": {"base": 100}}

	ctx := baseContext(snap)
	ctx.Amount = 0
	assert.Equal(t, ProblemInvalidAmount, d.Diagnose(ctx).Problem)

	ctx = baseContext(snap)
	ctx.Amount = -1
	assert.Equal(t, ProblemInvalidAmount, d.Diagnose(ctx).Problem)

	ctx = baseContext(snap)
	ctx.Recipient = "   "
	assert.Equal(t, ProblemNoRecipient, d.Diagnose(ctx).Problem)

	ctx = baseContext(snap)
	ctx.Online = false
	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemNetworkIssue, r.Problem)
	assert.Equal(t, []Action{ActionWait, ActionRetry}, solutionActions(r))

	ctx = baseContext(snap)
	ctx.PendingTxCount = 2
	r = d.Diagnose(ctx)
	assert.Equal(t, ProblemPendingTransaction, r.Problem)
	assert.Equal(t, SeverityWarning, r.Severity)

	ctx = baseContext(snap)
	ctx.Chain = ""
	assert.Equal(t, ProblemTokenNotSelected, d.Diagnose(ctx).Problem)
}

func TestDiagnose_TokenNotAvailable(t *testing.T) {
	d := newTestDiagnostician()

	ctx := baseContext(balances.Snapshot{"sol": {"solana": 4}})
	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemTokenNotAvailable, r.Problem)
	assert.Equal(t, []Action{ActionChangeChain}, solutionActions(r))
}

func TestDiagnose_Ready(t *testing.T) {
	d := newTestDiagnostician()

	// fee on base is 0.2% -> required 10.02, balance 11 covers it
	ctx := baseContext(balances.Snapshot{"usdc": {"base": 11}})
	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemNone, r.Problem)
	assert.Equal(t, SeverityInfo, r.Severity)
	assert.Empty(t, r.Solutions)
	assert.Nil(t, r.AutoBridgePlan)
}

func TestDiagnose_SingleChainAlternative(t *testing.T) {
	d := newTestDiagnostician()

	ctx := baseContext(balances.Snapshot{"usdc": {"base": 2, "polygon": 50}})
	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemInsufficientBalance, r.Problem)

	// A single-chain alternative exists, so no auto-bridge plan.
	assert.Nil(t, r.AutoBridgePlan)
	assert.Equal(t, []Action{ActionSwitchChain, ActionBuyMissing, ActionRequestMissing}, solutionActions(r))
}

func TestDiagnose_SwapTokenSolution(t *testing.T) {
	d := newTestDiagnostician()

	ctx := baseContext(balances.Snapshot{
		"usdc": {"base": 2},
		"usdt": {"base": 100},
	})
	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemInsufficientBalance, r.Problem)
	assert.Contains(t, solutionActions(r), ActionSwapToken)
}

func TestDiagnose_AutoBridgeEndToEnd(t *testing.T) {
	d := newTestDiagnostician()

	// USDC: solana 5, base 8. Send 10 on base with 0.2% fee.
	ctx := baseContext(balances.Snapshot{"usdc": {"solana": 5, "base": 8}})

	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemInsufficientBalance, r.Problem)

	require.Len(t, r.AutoBridgePlan, 2)
	// Destination-first greedy: all of base, then the remainder from solana.
	assert.Equal(t, "base", r.AutoBridgePlan[0].Chain)
	assert.InDelta(t, 8.0, r.AutoBridgePlan[0].Amount, 1e-9)
	assert.Equal(t, "solana", r.AutoBridgePlan[1].Chain)
	assert.InDelta(t, 2.02, r.AutoBridgePlan[1].Amount, 1e-9)

	sum := r.AutoBridgePlan[0].Amount + r.AutoBridgePlan[1].Amount
	assert.GreaterOrEqual(t, sum, 10.02-1e-9)

	// The auto-bridge option ranks first.
	require.NotEmpty(t, r.Solutions)
	assert.Equal(t, ActionAutoBridge, r.Solutions[0].Action)
	assert.Equal(t, 1, r.Solutions[0].Priority)
}

func TestDiagnose_AutoBridgeAbsentWhenTotalShort(t *testing.T) {
	d := newTestDiagnostician()

	ctx := baseContext(balances.Snapshot{"usdc": {"solana": 1, "base": 2}})
	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemInsufficientBalance, r.Problem)
	assert.Nil(t, r.AutoBridgePlan)

	actions := solutionActions(r)
	assert.NotContains(t, actions, ActionAutoBridge)
	assert.Contains(t, actions, ActionBuyMissing)
	assert.Contains(t, actions, ActionRequestMissing)
}

func TestDiagnose_OtherAccountsNeverAutoSpent(t *testing.T) {
	d := newTestDiagnostician()

	// Current account cannot cover the payment even though savings could.
	ctx := baseContext(balances.Snapshot{"usdc": {"base": 1}})
	ctx.OtherAccounts = map[string]balances.Snapshot{
		"savings": {"usdc": {"base": 1000}},
	}

	r := d.Diagnose(ctx)
	assert.Equal(t, ProblemInsufficientBalance, r.Problem)
	assert.Nil(t, r.AutoBridgePlan)
	require.Len(t, r.OtherAccountsBalance, 1)
	assert.Equal(t, "savings", r.OtherAccountsBalance[0].Account)
}

func TestFeeTable_Pct(t *testing.T) {
	fees := DefaultFeeTable()
	assert.Equal(t, 0.001, fees.Pct("solana"))
	assert.Equal(t, 0.002, fees.Pct("base"))
	assert.Equal(t, 0.003, fees.Pct("polygon"))
}
