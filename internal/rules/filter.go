package rules

import "github.com/MJE43/partydle/internal/dex"

// Rejection names the first rule that excludes entry under cfg, or returns
// "" when the entry is eligible. Rules are checked in a fixed order.
func Rejection(e dex.Entry, cfg Config) string {
	exempt := e.IgnoreEvolutionRestriction
	switch {
	case e.Legendary && !cfg.AllowLegendaries:
		return KeyAllowLegendaries
	case e.Mythical && !cfg.AllowMythicals:
		return KeyAllowMythicals
	case e.EvolutionMethod == dex.MethodTrade && !cfg.AllowTradeEvolutions && !exempt:
		return KeyAllowTradeEvolutions
	case e.Baby && !cfg.AllowBabies:
		return KeyAllowBabies
	case cfg.FinalEvolutionsOnly && !e.FinalEvolution:
		return KeyFinalEvolutionsOnly
	case isItemMethod(e.EvolutionMethod) && cfg.DisableItemEvolutions && !exempt:
		return KeyDisableItemEvolutions
	case e.EvolutionMethod == dex.MethodFriendship && cfg.DisableFriendshipEvolutions && !exempt:
		return KeyDisableFriendshipEvolutions
	case e.EvolutionMethod == dex.MethodUnique && cfg.DisableUniqueEvolutions && !exempt:
		return KeyDisableUniqueEvolutions
	}
	return ""
}

func isItemMethod(m string) bool {
	return m == dex.MethodUsedItem || m == dex.MethodHeldItem
}

// IsEligible reports whether entry may appear in a party generated under cfg.
func IsEligible(e dex.Entry, cfg Config) bool {
	return Rejection(e, cfg) == ""
}

// Filter returns the eligible entries in their original order.
func Filter(entries []dex.Entry, cfg Config) []dex.Entry {
	out := make([]dex.Entry, 0, len(entries))
	for _, e := range entries {
		if IsEligible(e, cfg) {
			out = append(out, e)
		}
	}
	return out
}

// Breakdown counts entries by the rule that rejects them. Eligible entries
// are counted under "".
func Breakdown(entries []dex.Entry, cfg Config) map[string]int {
	out := make(map[string]int)
	for _, e := range entries {
		out[Rejection(e, cfg)]++
	}
	return out
}
