package funding

// FeeTable holds the per-chain percentage fee charged in the sent token
// (the app absorbs gas and charges this instead). Values are
// configuration, not business truth.
type FeeTable struct {
	PerChain map[string]float64
	Default  float64
}

// DefaultFeeTable returns the built-in fee schedule: the cheapest chain
// at 0.1%, mid-tier at 0.2%, everything else at 0.3%.
func DefaultFeeTable() FeeTable {
	return FeeTable{
		PerChain: map[string]float64{
			"solana": 0.001,
			"base":   0.002,
		},
		Default: 0.003,
	}
}

// Pct returns the fee percentage for a chain.
func (f FeeTable) Pct(chain string) float64 {
	if pct, ok := f.PerChain[chain]; ok {
		return pct
	}
	return f.Default
}
