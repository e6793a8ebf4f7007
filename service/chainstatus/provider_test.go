package chainstatus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSolanaSig = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSolanaRPC struct {
	result *rpc.GetSignatureStatusesResult
	err    error
}

func (f *fakeSolanaRPC) GetSignatureStatuses(_ context.Context, _ bool, _ ...solanago.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return f.result, f.err
}

func solanaResult(status rpc.ConfirmationStatusType, txErr interface{}) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: status, Err: txErr},
		},
	}
}

func TestSolanaProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		result *rpc.GetSignatureStatusesResult
		want   Status
	}{
		{"unknown signature", &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, StatusPending},
		{"processed", solanaResult(rpc.ConfirmationStatusProcessed, nil), StatusProcessed},
		{"confirmed", solanaResult(rpc.ConfirmationStatusConfirmed, nil), StatusConfirmed},
		{"finalized", solanaResult(rpc.ConfirmationStatusFinalized, nil), StatusFinalized},
		{"failed", solanaResult(rpc.ConfirmationStatusFinalized, map[string]interface{}{"InstructionError": []interface{}{}}), StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSolanaProvider(&fakeSolanaRPC{result: tt.result}, nil, discardLogger())
			status, err := p.PollStatus(context.Background(), "solana", testSolanaSig)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestSolanaProvider_RPCErrorIsNotPending(t *testing.T) {
	p := NewSolanaProvider(&fakeSolanaRPC{err: errors.New("rpc down")}, nil, discardLogger())
	_, err := p.PollStatus(context.Background(), "solana", testSolanaSig)
	require.Error(t, err)
}

func TestSolanaProvider_BadSignature(t *testing.T) {
	p := NewSolanaProvider(&fakeSolanaRPC{}, nil, discardLogger())
	_, err := p.PollStatus(context.Background(), "solana", "not-base58!")
	require.Error(t, err)
}

type fakeEVMRPC struct {
	receipt *ethtypes.Receipt
	err     error
}

func (f *fakeEVMRPC) TransactionReceipt(_ context.Context, _ common.Hash) (*ethtypes.Receipt, error) {
	return f.receipt, f.err
}

func TestEVMProvider_StatusMapping(t *testing.T) {
	hash := "0xabcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890"

	t.Run("not found is pending, not an error", func(t *testing.T) {
		p := NewEVMProvider(&fakeEVMRPC{err: ethereum.NotFound}, nil, discardLogger())
		status, err := p.PollStatus(context.Background(), "base", hash)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, status)
	})

	t.Run("successful receipt", func(t *testing.T) {
		receipt := &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}
		p := NewEVMProvider(&fakeEVMRPC{receipt: receipt}, nil, discardLogger())
		status, err := p.PollStatus(context.Background(), "base", hash)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, status)
	})

	t.Run("reverted receipt", func(t *testing.T) {
		receipt := &ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed, BlockNumber: big.NewInt(1)}
		p := NewEVMProvider(&fakeEVMRPC{receipt: receipt}, nil, discardLogger())
		status, err := p.PollStatus(context.Background(), "base", hash)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, status)
	})

	t.Run("transport error", func(t *testing.T) {
		p := NewEVMProvider(&fakeEVMRPC{err: errors.New("connection refused")}, nil, discardLogger())
		_, err := p.PollStatus(context.Background(), "base", hash)
		require.Error(t, err)
	})
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry()
	mock := NewMockProvider()
	mock.Script("sig1", StatusConfirmed)
	reg.Register("solana", mock)

	status, err := reg.PollStatus(context.Background(), "solana", "sig1")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status)

	_, err = reg.PollStatus(context.Background(), "tron", "hash")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestMockProvider_ScriptSteps(t *testing.T) {
	mock := NewMockProvider()
	mock.Script("h", StatusPending, StatusConfirmed)
	ctx := context.Background()

	s, _ := mock.PollStatus(ctx, "base", "h")
	assert.Equal(t, StatusPending, s)
	s, _ = mock.PollStatus(ctx, "base", "h")
	assert.Equal(t, StatusConfirmed, s)
	// Last entry repeats.
	s, _ = mock.PollStatus(ctx, "base", "h")
	assert.Equal(t, StatusConfirmed, s)
}

func TestStatus_Settled(t *testing.T) {
	assert.True(t, StatusConfirmed.Settled())
	assert.True(t, StatusFinalized.Settled())
	assert.False(t, StatusProcessed.Settled())
	assert.False(t, StatusPending.Settled())
	assert.False(t, StatusFailed.Settled())
}
