package funding

import "sort"

// planBridge computes a greedy multi-chain allocation that covers the
// required amount on the destination chain. Candidate chains are ordered
// destination first, then by descending balance (chain key ascending on
// ties, for determinism). Each hop takes at most the chain's available
// balance. If the greedy sum still falls short, no plan is returned:
// a partially funded plan is worse than none.
func planBridge(tokenChains map[string]float64, dest string, required float64) []BridgeHop {
	type candidate struct {
		chain  string
		amount float64
	}

	candidates := make([]candidate, 0, len(tokenChains))
	for chain, amount := range tokenChains {
		if amount <= 0 {
			continue
		}
		candidates = append(candidates, candidate{chain: chain, amount: amount})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].chain == dest {
			return true
		}
		if candidates[j].chain == dest {
			return false
		}
		if candidates[i].amount != candidates[j].amount {
			return candidates[i].amount > candidates[j].amount
		}
		return candidates[i].chain < candidates[j].chain
	})

	var plan []BridgeHop
	var allocated float64
	for _, c := range candidates {
		if allocated >= required {
			break
		}
		take := c.amount
		if remaining := required - allocated; take > remaining {
			take = remaining
		}
		plan = append(plan, BridgeHop{Chain: c.chain, Amount: take})
		allocated += take
	}

	if allocated < required {
		return nil
	}
	return plan
}

// sortedKeys returns the map's keys in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
