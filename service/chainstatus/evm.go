package chainstatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hihodl/sendcore/service/metrics"
)

// EVMRPC is the slice of the EVM JSON-RPC surface we need.
// *ethclient.Client satisfies it.
type EVMRPC interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EVMProvider polls transaction receipts against one EVM chain's RPC.
type EVMProvider struct {
	rpc     EVMRPC
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewEVMProvider creates a provider over the given RPC client.
func NewEVMProvider(rpcClient EVMRPC, m *metrics.Metrics, logger *slog.Logger) *EVMProvider {
	return &EVMProvider{rpc: rpcClient, logger: logger, metrics: m}
}

// DialEVMRPC dials an EVM JSON-RPC endpoint.
func DialEVMRPC(ctx context.Context, rpcURL string) (EVMRPC, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial EVM RPC %s: %w", rpcURL, err)
	}
	return client, nil
}

// PollStatus maps the receipt lookup to a status: no receipt yet means
// pending, a receipt with a success status means confirmed, anything
// else means the transaction reverted.
func (p *EVMProvider) PollStatus(ctx context.Context, chain, txHash string) (Status, error) {
	start := time.Now()
	receipt, err := p.rpc.TransactionReceipt(ctx, common.HexToHash(txHash))
	duration := time.Since(start).Seconds()

	if errors.Is(err, ethereum.NotFound) {
		p.metrics.RecordProviderCall(chain, string(StatusPending), duration)
		return StatusPending, nil
	}
	if err != nil {
		p.metrics.RecordProviderCall(chain, "error", duration)
		return StatusPending, fmt.Errorf("eth_getTransactionReceipt failed: %w", err)
	}

	status := StatusFailed
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = StatusConfirmed
	}
	p.metrics.RecordProviderCall(chain, string(status), duration)

	p.logger.DebugContext(ctx, "polled evm receipt",
		"chain", chain,
		"tx_hash", txHash,
		"status", status,
	)
	return status, nil
}
