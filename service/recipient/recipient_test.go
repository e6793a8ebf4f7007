package recipient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	evmAddr  = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	solAddr  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	tronAddr = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	goodIBAN = "NL91ABNA0417164300"
)

func TestResolve_Kinds(t *testing.T) {
	r := NewResolver("base")

	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantAddr string
		wantHint string
	}{
		{"hihodl alias", "@satoshi_21", KindHiHODL, "@satoshi_21", ""},
		{"email", "ada@example.com", KindEmail, "", ""},
		{"phone with plus", "+31 6 1234-5678", KindPhone, "+31612345678", ""},
		{"phone bare short", "0612345678", KindPhone, "0612345678", ""},
		{"iban", goodIBAN, KindIBAN, goodIBAN, ""},
		{"iban lowercase", strings.ToLower(goodIBAN), KindIBAN, goodIBAN, ""},
		{"ens", "Vitalik.ETH", KindENS, "vitalik.eth", "ethereum"},
		{"tron", tronAddr, KindTron, tronAddr, "tron"},
		{"evm", evmAddr, KindEVM, strings.ToLower(evmAddr), "base"},
		{"solana", solAddr, KindSol, solAddr, "solana"},
		{"card plain", "4111111111111111", KindCard, "4111111111111111", ""},
		{"card with separators", "4111 1111 1111 1111", KindCard, "4111111111111111", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := r.Resolve(tt.input)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Equal(t, tt.wantAddr, p.ResolvedAddress)
			assert.Equal(t, tt.wantHint, p.ChainHint)
			assert.Empty(t, p.ValidationError)
			assert.Equal(t, strings.TrimSpace(tt.input), p.RawInput)
		})
	}
}

func TestResolve_NoMatch(t *testing.T) {
	r := NewResolver("")

	for _, input := range []string{
		"",
		"   ",
		"hello world",
		"@ab",                  // alias too short
		"@way_too_long_alias_for_the_rules",
		"0x1234",               // hex but not 40 chars
		"123456",               // too few digits for phone or card
		"not.a.real.tld.name",  // dots but no @ and not .eth
	} {
		assert.Nil(t, r.Resolve(input), "input %q should not match", input)
	}
}

func TestResolve_URISchemes(t *testing.T) {
	r := NewResolver("ethereum")

	p := r.Resolve("ethereum:" + evmAddr)
	require.NotNil(t, p)
	assert.Equal(t, KindEVM, p.Kind)
	assert.Equal(t, strings.ToLower(evmAddr), p.ResolvedAddress)
	assert.Empty(t, p.ValidationError)

	p = r.Resolve("solana:" + solAddr + "?amount=1.5")
	require.NotNil(t, p)
	assert.Equal(t, KindSol, p.Kind)
	assert.Equal(t, solAddr, p.ResolvedAddress)
	assert.Empty(t, p.ValidationError)

	p = r.Resolve("iban:" + goodIBAN)
	require.NotNil(t, p)
	assert.Equal(t, KindIBAN, p.Kind)
	assert.Equal(t, goodIBAN, p.ResolvedAddress)

	p = r.Resolve("mailto:ada@example.com")
	require.NotNil(t, p)
	assert.Equal(t, KindEmail, p.Kind)
	assert.Equal(t, "ada@example.com", p.ResolvedAddress)
}

func TestResolve_URIBadPayloadDoesNotFallThrough(t *testing.T) {
	r := NewResolver("ethereum")

	// A recognized scheme with a garbage payload must produce a populated
	// result carrying a validation error, not nil and not a later rule's
	// classification.
	p := r.Resolve("ethereum:not-an-address")
	require.NotNil(t, p)
	assert.Equal(t, KindEVM, p.Kind)
	assert.NotEmpty(t, p.ValidationError)

	p = r.Resolve("solana:zzz")
	require.NotNil(t, p)
	assert.Equal(t, KindSol, p.Kind)
	assert.NotEmpty(t, p.ValidationError)

	p = r.Resolve("mailto:nope")
	require.NotNil(t, p)
	assert.Equal(t, KindEmail, p.Kind)
	assert.NotEmpty(t, p.ValidationError)
}

func TestResolve_IBANChecksum(t *testing.T) {
	r := NewResolver("")

	p := r.Resolve(goodIBAN)
	require.NotNil(t, p)
	assert.Empty(t, p.ValidationError)

	// Flipping any single digit must break the mod-97 checksum.
	for i, ch := range goodIBAN {
		if ch < '0' || ch > '9' {
			continue
		}
		flipped := goodIBAN[:i] + string('0'+(ch-'0'+1)%10) + goodIBAN[i+1:]
		p := r.Resolve(flipped)
		require.NotNil(t, p, "flipped IBAN %q should still parse as IBAN", flipped)
		assert.Equal(t, KindIBAN, p.Kind)
		assert.Equal(t, "Invalid IBAN", p.ValidationError, "position %d", i)
	}
}

func TestResolve_EVMPrecedesBase58Rules(t *testing.T) {
	r := NewResolver("ethereum")

	// 42 chars; without the 0x prefix check this could look base58-ish.
	p := r.Resolve(evmAddr)
	require.NotNil(t, p)
	assert.Equal(t, KindEVM, p.Kind)
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver("base")

	for _, input := range []string{evmAddr, solAddr, goodIBAN, "@satoshi_21", "+31612345678", "bad input"} {
		first := r.Resolve(input)
		second := r.Resolve(input)
		assert.Equal(t, first, second)
	}
}

func TestIsSendableAddress(t *testing.T) {
	r := NewResolver("base")

	sendable := []string{evmAddr, solAddr, tronAddr, "@satoshi_21", goodIBAN, "4111111111111111"}
	for _, input := range sendable {
		assert.True(t, r.IsSendableAddress(input), "input %q", input)
	}

	notSendable := []string{
		"ada@example.com",  // needs off-chain resolution
		"+31612345678",     // needs off-chain resolution
		"vitalik.eth",      // ENS without resolution
		"hello",            // no match
		"NL91ABNA0417164301", // bad checksum
	}
	for _, input := range notSendable {
		assert.False(t, r.IsSendableAddress(input), "input %q", input)
	}
}
