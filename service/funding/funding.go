// Package funding decides whether a requested transfer is fundable and,
// when it is not, computes ranked remediation options including a
// multi-chain auto-bridge allocation plan.
package funding

import (
	"log/slog"
	"strings"

	"github.com/hihodl/sendcore/service/balances"
)

// Problem classifies the outcome of a diagnosis.
type Problem string

const (
	ProblemNone                 Problem = "none"
	ProblemNoBalanceAnyToken    Problem = "no_balance_any_token"
	ProblemInsufficientBalance  Problem = "insufficient_balance"
	ProblemTokenNotAvailable    Problem = "token_not_available_chain"
	ProblemTokenNotSelected     Problem = "token_not_selected"
	ProblemNoRecipient          Problem = "no_recipient"
	ProblemInvalidAmount        Problem = "invalid_amount"
	ProblemNetworkIssue         Problem = "network_issue"
	ProblemPendingTransaction   Problem = "pending_transaction"
)

// Severity indicates how the caller should treat a problem: critical
// blocks the send action, warning is advisory, info means ready.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Action identifies a remediation the UI can offer.
type Action string

const (
	ActionRequestPayment Action = "request_payment"
	ActionBuyCrypto      Action = "buy_crypto"
	ActionReceiveFunds   Action = "receive_funds"
	ActionWait           Action = "wait"
	ActionRetry          Action = "retry"
	ActionChangeChain    Action = "change_chain"
	ActionAutoBridge     Action = "auto_bridge"
	ActionSwitchChain    Action = "switch_chain"
	ActionSwapToken      Action = "swap_token"
	ActionBuyMissing     Action = "buy_missing"
	ActionRequestMissing Action = "request_missing"
)

// Solution is one remediation option. Lower Priority sorts first.
type Solution struct {
	Action      Action `json:"action"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// BridgeHop is one leg of an auto-bridge plan: take Amount from Chain.
type BridgeHop struct {
	Chain  string  `json:"chain"`
	Amount float64 `json:"amount"`
}

// OtherAccountBalance surfaces funds held in a different sub-account.
// Informational only; other accounts are never auto-spent.
type OtherAccountBalance struct {
	Account string  `json:"account"`
	TokenID string  `json:"token_id"`
	Chain   string  `json:"chain"`
	Balance float64 `json:"balance"`
}

// Context carries everything a diagnosis needs. Diagnose is a total
// function of this struct: no stores, no side effects.
type Context struct {
	TokenID        string
	Chain          string
	Amount         float64
	Recipient      string
	Online         bool
	PendingTxCount int

	// Balances is the current account's snapshot; it alone is
	// authoritative for feasibility.
	Balances balances.Snapshot

	// OtherAccounts maps account id -> snapshot, informational only.
	OtherAccounts map[string]balances.Snapshot
}

// Result is the outcome of one diagnosis. Computed fresh on every call,
// never persisted.
type Result struct {
	Problem              Problem               `json:"problem"`
	Severity             Severity              `json:"severity"`
	Message              string                `json:"message"`
	Solutions            []Solution            `json:"solutions,omitempty"`
	AutoBridgePlan       []BridgeHop           `json:"auto_bridge_plan,omitempty"`
	OtherAccountsBalance []OtherAccountBalance `json:"other_accounts_balance,omitempty"`
}

// Diagnostician evaluates transfer feasibility against a fee table.
type Diagnostician struct {
	fees   FeeTable
	logger *slog.Logger
}

// NewDiagnostician creates a diagnostician. A zero-value FeeTable falls
// back to DefaultFeeTable.
func NewDiagnostician(fees FeeTable, logger *slog.Logger) *Diagnostician {
	if fees.PerChain == nil && fees.Default == 0 {
		fees = DefaultFeeTable()
	}
	return &Diagnostician{fees: fees, logger: logger}
}

// Diagnose evaluates the context and returns a result. It never returns
// an error: degenerate inputs are reported through Problem/Severity so
// the caller can render non-fatal guidance.
//
// Numeric comparisons against the required amount use exact >= and <.
// Tests pin behavior with exactly representable values.
func (d *Diagnostician) Diagnose(ctx Context) Result {
	// 1. No balance anywhere in the current account.
	if ctx.Balances.Total() == 0 {
		return Result{
			Problem:  ProblemNoBalanceAnyToken,
			Severity: SeverityCritical,
			Message:  "You have no funds in this account",
			Solutions: []Solution{
				{Action: ActionRequestPayment, Label: "Request payment", Description: "Ask a contact to send you funds", Priority: 1},
				{Action: ActionBuyCrypto, Label: "Buy crypto", Description: "Buy crypto with a card or bank transfer", Priority: 2},
				{Action: ActionReceiveFunds, Label: "Receive funds", Description: "Share your address to receive funds", Priority: 3},
			},
			OtherAccountsBalance: collectOtherAccounts(ctx.OtherAccounts),
		}
	}

	// 2. Invalid amount.
	if ctx.Amount <= 0 {
		return Result{
			Problem:  ProblemInvalidAmount,
			Severity: SeverityCritical,
			Message:  "Enter an amount greater than zero",
		}
	}

	// 3. No recipient.
	if strings.TrimSpace(ctx.Recipient) == "" {
		return Result{
			Problem:  ProblemNoRecipient,
			Severity: SeverityCritical,
			Message:  "Choose who to send to",
		}
	}

	// 4. No network connectivity.
	if !ctx.Online {
		return Result{
			Problem:  ProblemNetworkIssue,
			Severity: SeverityCritical,
			Message:  "No network connection",
			Solutions: []Solution{
				{Action: ActionWait, Label: "Wait", Description: "Wait for connectivity to return", Priority: 1},
				{Action: ActionRetry, Label: "Retry", Description: "Try again now", Priority: 2},
			},
		}
	}

	// 5. Other transfers still in flight.
	if ctx.PendingTxCount > 0 {
		return Result{
			Problem:  ProblemPendingTransaction,
			Severity: SeverityWarning,
			Message:  "A previous transaction is still processing",
			Solutions: []Solution{
				{Action: ActionWait, Label: "Wait", Description: "Wait for pending transactions to settle", Priority: 1},
			},
		}
	}

	// 6. Token or chain not selected yet.
	if ctx.TokenID == "" || ctx.Chain == "" {
		return Result{
			Problem:  ProblemTokenNotSelected,
			Severity: SeverityWarning,
			Message:  "Select a token and network",
		}
	}

	// 7. Token has no balance entries on any chain.
	tokenChains := ctx.Balances.Chains(ctx.TokenID)
	if len(tokenChains) == 0 {
		return Result{
			Problem:  ProblemTokenNotAvailable,
			Severity: SeverityCritical,
			Message:  "This token is not available in your account",
			Solutions: []Solution{
				{Action: ActionChangeChain, Label: "Change network", Description: "Pick a token and network you hold funds on", Priority: 1},
			},
		}
	}

	// 8. Balance check on the selected chain.
	required := ctx.Amount * (1 + d.fees.Pct(ctx.Chain))
	if tokenChains[ctx.Chain] >= required {
		// 9. Ready.
		return Result{
			Problem:  ProblemNone,
			Severity: SeverityInfo,
			Message:  "Payment ready to send",
		}
	}

	return d.diagnoseInsufficient(ctx, tokenChains, required)
}

// diagnoseInsufficient builds the insufficient_balance result: ranked
// solutions, an optional auto-bridge plan, and informational balances
// from other accounts.
func (d *Diagnostician) diagnoseInsufficient(ctx Context, tokenChains map[string]float64, required float64) Result {
	totalAcrossChains := ctx.Balances.TokenTotal(ctx.TokenID)

	// Chains other than the selected one whose balance alone covers the
	// required amount.
	var alternatives []string
	for chain, amount := range tokenChains {
		if chain != ctx.Chain && amount >= required {
			alternatives = append(alternatives, chain)
		}
	}

	// Auto-bridge only when no single chain can cover it but the token's
	// total across chains can.
	var plan []BridgeHop
	if len(alternatives) == 0 && totalAcrossChains >= required {
		plan = planBridge(tokenChains, ctx.Chain, required)
	}

	// Other tokens in this account with a single-chain balance that
	// covers the required amount (a swap candidate).
	var swapToken string
	for token, chains := range ctx.Balances {
		if token == ctx.TokenID {
			continue
		}
		for _, amount := range chains {
			if amount >= required {
				swapToken = token
				break
			}
		}
		if swapToken != "" {
			break
		}
	}

	missing := required - tokenChains[ctx.Chain]

	var solutions []Solution
	if len(plan) > 0 {
		solutions = append(solutions, Solution{
			Action:      ActionAutoBridge,
			Label:       "Bridge automatically",
			Description: "Combine balances from your other networks to cover this payment",
			Priority:    1,
		})
	}
	if len(alternatives) > 0 {
		solutions = append(solutions, Solution{
			Action:      ActionSwitchChain,
			Label:       "Switch network",
			Description: "You have enough on another network",
			Priority:    2,
		})
	}
	if swapToken != "" {
		solutions = append(solutions, Solution{
			Action:      ActionSwapToken,
			Label:       "Swap another token",
			Description: "Swap " + strings.ToUpper(swapToken) + " to cover this payment",
			Priority:    3,
		})
	}
	solutions = append(solutions,
		Solution{
			Action:      ActionBuyMissing,
			Label:       "Buy the difference",
			Description: "Buy the missing amount to complete this payment",
			Priority:    4,
		},
		Solution{
			Action:      ActionRequestMissing,
			Label:       "Request the difference",
			Description: "Ask a contact to send you the missing amount",
			Priority:    5,
		},
	)

	d.logIfEnabled(ctx, required, missing, len(plan) > 0)

	return Result{
		Problem:              ProblemInsufficientBalance,
		Severity:             SeverityCritical,
		Message:              "Not enough balance on the selected network",
		Solutions:            solutions,
		AutoBridgePlan:       plan,
		OtherAccountsBalance: collectOtherAccounts(ctx.OtherAccounts),
	}
}

func (d *Diagnostician) logIfEnabled(ctx Context, required, missing float64, bridged bool) {
	if d.logger == nil {
		return
	}
	d.logger.Debug("insufficient balance",
		"token", ctx.TokenID,
		"chain", ctx.Chain,
		"required", required,
		"missing", missing,
		"auto_bridge", bridged,
	)
}

// collectOtherAccounts flattens other accounts' nonzero balances into the
// informational list. Deterministic order: account, token, chain.
func collectOtherAccounts(accounts map[string]balances.Snapshot) []OtherAccountBalance {
	var out []OtherAccountBalance
	for _, account := range sortedKeys(accounts) {
		snap := accounts[account]
		for _, token := range sortedKeys(snap) {
			chains := snap[token]
			for _, chain := range sortedKeys(chains) {
				if chains[chain] > 0 {
					out = append(out, OtherAccountBalance{
						Account: account,
						TokenID: token,
						Chain:   chain,
						Balance: chains[chain],
					})
				}
			}
		}
	}
	return out
}
