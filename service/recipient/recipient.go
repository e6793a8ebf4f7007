// Package recipient classifies free-form "send to" input into a typed,
// chain-aware recipient. Parsing is pure: no network calls, no stores.
package recipient

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Kind identifies the recognized recipient format. Closed set: parsing an
// unrecognized input yields no result at all, never a new kind.
type Kind string

const (
	KindHiHODL Kind = "hihodl"
	KindPhone  Kind = "phone"
	KindEmail  Kind = "email"
	KindEVM    Kind = "evm"
	KindSol    Kind = "sol"
	KindTron   Kind = "tron"
	KindENS    Kind = "ens"
	KindIBAN   Kind = "iban"
	KindCard   Kind = "card"
)

func (k Kind) String() string { return string(k) }

// ParsedRecipient is the result of classifying one input string.
// A populated ValidationError means the input matched a rule's shape but
// failed that rule's deeper validation (e.g. IBAN checksum); callers must
// check it before treating the parse as usable.
type ParsedRecipient struct {
	Kind            Kind   `json:"kind"`
	RawInput        string `json:"raw_input"`
	ChainHint       string `json:"chain_hint,omitempty"`
	ResolvedAddress string `json:"resolved_address,omitempty"`
	ValidationError string `json:"validation_error,omitempty"`
}

// Valid reports whether the parse is usable as-is.
func (p *ParsedRecipient) Valid() bool {
	return p != nil && p.ValidationError == ""
}

var (
	aliasRegex = regexp.MustCompile(`^@[a-z0-9_]{3,24}$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,}$`)
	ibanRegex  = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
	ensRegex   = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]*\.eth$`)
	// base58 alphabet: no 0, O, I, l
	base58Regex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
	digitsRegex = regexp.MustCompile(`^[0-9]+$`)
)

// Resolver classifies free-form input. The zero value is usable; the
// default EVM chain is "ethereum" unless configured otherwise.
type Resolver struct {
	// DefaultEVMChain is the chain hint attached to bare 0x addresses.
	// The concrete target chain (mainnet vs. an L2) is resolved later by
	// the caller, not here.
	DefaultEVMChain string
}

// NewResolver creates a resolver with the given default EVM chain.
func NewResolver(defaultEVMChain string) *Resolver {
	if defaultEVMChain == "" {
		defaultEVMChain = "ethereum"
	}
	return &Resolver{DefaultEVMChain: defaultEVMChain}
}

// Resolve classifies input into a ParsedRecipient. Rules are applied in a
// fixed precedence order and the first match wins, so ambiguous strings
// resolve deterministically. Returns nil for unrecognized input; that is
// "no match", not an error.
func (r *Resolver) Resolve(input string) *ParsedRecipient {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	// 1. URI schemes. A malformed payload under a recognized scheme
	// yields a result carrying ValidationError rather than falling
	// through to later rules.
	if p := r.resolveURI(trimmed); p != nil {
		return p
	}

	// 2. HiHODL alias.
	if aliasRegex.MatchString(strings.ToLower(trimmed)) {
		return &ParsedRecipient{
			Kind:            KindHiHODL,
			RawInput:        trimmed,
			ResolvedAddress: strings.ToLower(trimmed),
		}
	}

	// 3. Email.
	if emailRegex.MatchString(trimmed) {
		return &ParsedRecipient{Kind: KindEmail, RawInput: trimmed}
	}

	// 4. Phone. Strings of 13-19 bare digits are deferred to the card
	// rule below; everything else matching the loose phone shape is a
	// phone number, normalized to digits and a leading "+".
	if phoneRegex.MatchString(trimmed) && !isCardShaped(trimmed) {
		return &ParsedRecipient{
			Kind:            KindPhone,
			RawInput:        trimmed,
			ResolvedAddress: normalizePhone(trimmed),
		}
	}

	// 5. IBAN.
	if upper := strings.ToUpper(trimmed); ibanRegex.MatchString(upper) {
		p := &ParsedRecipient{Kind: KindIBAN, RawInput: trimmed, ResolvedAddress: upper}
		if !ibanChecksumValid(upper) {
			p.ResolvedAddress = ""
			p.ValidationError = "Invalid IBAN"
		}
		return p
	}

	// 6. ENS.
	if lower := strings.ToLower(trimmed); ensRegex.MatchString(lower) {
		return &ParsedRecipient{
			Kind:            KindENS,
			RawInput:        trimmed,
			ChainHint:       "ethereum",
			ResolvedAddress: lower,
		}
	}

	// 7. Tron: base58, 34 chars, leading T.
	if len(trimmed) == 34 && trimmed[0] == 'T' && base58Regex.MatchString(trimmed) {
		if _, err := base58.Decode(trimmed); err == nil {
			return &ParsedRecipient{
				Kind:            KindTron,
				RawInput:        trimmed,
				ChainHint:       "tron",
				ResolvedAddress: trimmed,
			}
		}
	}

	// 8. EVM hex address. Must precede the Solana rule: 0x-prefixed hex
	// could coincidentally satisfy looser shapes.
	if common.IsHexAddress(trimmed) {
		return &ParsedRecipient{
			Kind:            KindEVM,
			RawInput:        trimmed,
			ChainHint:       r.DefaultEVMChain,
			ResolvedAddress: strings.ToLower(trimmed),
		}
	}

	// 9. Solana: base58, 32-44 chars. Best-effort shape check only, no
	// on-curve validation.
	if len(trimmed) >= 32 && len(trimmed) <= 44 && base58Regex.MatchString(trimmed) {
		return &ParsedRecipient{
			Kind:            KindSol,
			RawInput:        trimmed,
			ChainHint:       "solana",
			ResolvedAddress: trimmed,
		}
	}

	// 10. Card number heuristic: 13-19 digits after stripping separators,
	// no leading "+".
	if isCardShaped(trimmed) {
		return &ParsedRecipient{
			Kind:            KindCard,
			RawInput:        trimmed,
			ResolvedAddress: stripSeparators(trimmed),
		}
	}

	return nil
}

// resolveURI handles the ethereum:, solana:, iban: and mailto: schemes.
// Returns nil when the input is not a recognized URI.
func (r *Resolver) resolveURI(input string) *ParsedRecipient {
	idx := strings.Index(input, ":")
	if idx <= 0 {
		return nil
	}
	scheme := strings.ToLower(input[:idx])
	switch scheme {
	case "ethereum", "solana", "iban", "mailto":
	default:
		return nil
	}

	u, err := url.Parse(input)
	payload := ""
	if err == nil {
		payload = u.Opaque
		if payload == "" {
			payload = strings.TrimPrefix(u.Path, "/")
		}
	} else {
		payload = input[idx+1:]
	}
	// Some wallets append query params (amount, token); the payload is
	// just the target identifier.
	if q := strings.Index(payload, "?"); q >= 0 {
		payload = payload[:q]
	}

	switch scheme {
	case "ethereum":
		p := &ParsedRecipient{Kind: KindEVM, RawInput: input, ChainHint: r.DefaultEVMChain}
		if common.IsHexAddress(payload) {
			p.ResolvedAddress = strings.ToLower(payload)
		} else {
			p.ValidationError = "invalid ethereum address"
		}
		return p
	case "solana":
		p := &ParsedRecipient{Kind: KindSol, RawInput: input, ChainHint: "solana"}
		if _, err := solanago.PublicKeyFromBase58(payload); err == nil {
			p.ResolvedAddress = payload
		} else {
			p.ValidationError = "invalid solana address"
		}
		return p
	case "iban":
		p := &ParsedRecipient{Kind: KindIBAN, RawInput: input}
		upper := strings.ToUpper(payload)
		if ibanRegex.MatchString(upper) && ibanChecksumValid(upper) {
			p.ResolvedAddress = upper
		} else {
			p.ValidationError = "Invalid IBAN"
		}
		return p
	case "mailto":
		p := &ParsedRecipient{Kind: KindEmail, RawInput: input}
		if emailRegex.MatchString(payload) {
			p.ResolvedAddress = payload
		} else {
			p.ValidationError = "invalid email address"
		}
		return p
	}
	return nil
}

// IsSendableAddress reports whether input resolves to a directly fundable
// target. Email, phone and unresolved ENS names are excluded: they need
// off-chain resolution before funds can move.
func (r *Resolver) IsSendableAddress(input string) bool {
	p := r.Resolve(input)
	if !p.Valid() {
		return false
	}
	switch p.Kind {
	case KindEVM, KindSol, KindTron, KindHiHODL, KindIBAN, KindCard:
		return true
	default:
		return false
	}
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}

// isCardShaped reports whether the input looks like a card number:
// 13-19 digits after stripping spaces/hyphens and no leading "+"
// (which would make it a phone number).
func isCardShaped(s string) bool {
	if strings.HasPrefix(s, "+") {
		return false
	}
	stripped := stripSeparators(s)
	if !digitsRegex.MatchString(stripped) {
		return false
	}
	return len(stripped) >= 13 && len(stripped) <= 19
}

// normalizePhone reduces a phone number to digits and a leading "+".
func normalizePhone(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
