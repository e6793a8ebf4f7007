package chainstatus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hihodl/sendcore/service/metrics"
)

// SolanaRPC is the narrow slice of the Solana RPC surface we need.
// Keeping it an interface lets tests run without a real node.
type SolanaRPC interface {
	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		transactionSignatures ...solanago.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

// SolanaProvider polls transaction signatures against a Solana RPC node.
type SolanaProvider struct {
	rpc     SolanaRPC
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewSolanaProvider creates a provider over the given RPC client.
func NewSolanaProvider(rpcClient SolanaRPC, m *metrics.Metrics, logger *slog.Logger) *SolanaProvider {
	return &SolanaProvider{rpc: rpcClient, logger: logger, metrics: m}
}

// NewSolanaRPC dials a Solana RPC endpoint. For premium endpoints the
// API key goes in the URL.
func NewSolanaRPC(rpcURL string) SolanaRPC {
	return rpc.New(rpcURL)
}

// PollStatus looks up the signature's confirmation status. A signature
// the node has never seen reports pending: it may simply not have
// propagated yet.
func (p *SolanaProvider) PollStatus(ctx context.Context, chain, txHash string) (Status, error) {
	sig, err := solanago.SignatureFromBase58(txHash)
	if err != nil {
		return StatusPending, fmt.Errorf("invalid solana signature %q: %w", txHash, err)
	}

	start := time.Now()
	out, err := p.rpc.GetSignatureStatuses(ctx, true, sig)
	duration := time.Since(start).Seconds()

	if err != nil {
		p.metrics.RecordProviderCall(chain, "error", duration)
		return StatusPending, fmt.Errorf("getSignatureStatuses failed: %w", err)
	}

	status := solanaStatusFrom(out)
	p.metrics.RecordProviderCall(chain, string(status), duration)

	p.logger.DebugContext(ctx, "polled solana signature",
		"signature", txHash,
		"status", status,
	)
	return status, nil
}

func solanaStatusFrom(out *rpc.GetSignatureStatusesResult) Status {
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return StatusPending
	}
	st := out.Value[0]
	if st.Err != nil {
		return StatusFailed
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		return StatusFinalized
	case rpc.ConfirmationStatusConfirmed:
		return StatusConfirmed
	case rpc.ConfirmationStatusProcessed:
		return StatusProcessed
	default:
		return StatusPending
	}
}
