package strategy

import (
	"sort"

	"gaptrader-go/internal/risk"
	"gaptrader-go/internal/signal"
)

// RankAndSize orders signals by strength (stable on ties), keeps at most
// limits.MaxPositions of them and gives each the same fraction of equity.
func RankAndSize(signals []signal.Signal, limits risk.Limits) []signal.SizedSignal {
	if len(signals) == 0 {
		return nil
	}
	ranked := make([]signal.Signal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Strength > ranked[j].Strength
	})

	n := limits.Take(len(ranked))
	if n == 0 {
		return nil
	}
	alloc := limits.Allocation(n)
	out := make([]signal.SizedSignal, n)
	for i := 0; i < n; i++ {
		out[i] = signal.SizedSignal{Signal: ranked[i], Allocation: alloc}
	}
	return out
}
