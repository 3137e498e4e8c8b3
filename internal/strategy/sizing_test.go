package strategy

import (
	"testing"

	"gaptrader-go/internal/risk"
	"gaptrader-go/internal/signal"
)

func sig(symbol string, strength float64) signal.Signal {
	return signal.Signal{Symbol: symbol, Direction: signal.GapUp, Strength: strength}
}

func TestRankAndSizeOrdersByStrength(t *testing.T) {
	limits := risk.Limits{MaxPositions: 3, AllocPerTrade: 0.25}
	out := RankAndSize([]signal.Signal{sig("A", 0.05), sig("B", 0.03), sig("C", 0.08)}, limits)
	if len(out) != 3 {
		t.Fatalf("expected 3 sized signals, got %d", len(out))
	}
	wantOrder := []string{"C", "A", "B"}
	for i, want := range wantOrder {
		if out[i].Symbol != want {
			t.Fatalf("position %d: expected %s got %s", i, want, out[i].Symbol)
		}
		if out[i].Allocation != 0.25 {
			t.Fatalf("expected allocation 0.25, got %.4f", out[i].Allocation)
		}
	}
}

func TestRankAndSizeCapsAndSplits(t *testing.T) {
	limits := risk.Limits{MaxPositions: 5, AllocPerTrade: 0.5}
	in := []signal.Signal{sig("A", 0.1), sig("B", 0.2), sig("C", 0.3), sig("D", 0.4), sig("E", 0.5), sig("F", 0.6)}
	out := RankAndSize(in, limits)
	if len(out) != 5 {
		t.Fatalf("expected cap of 5, got %d", len(out))
	}
	for _, s := range out {
		if s.Allocation > 0.2+1e-12 {
			t.Fatalf("allocation %.4f exceeds 1/count", s.Allocation)
		}
		if s.Symbol == "A" {
			t.Fatalf("weakest signal should have been dropped")
		}
	}
}

func TestRankAndSizeStableOnTies(t *testing.T) {
	limits := risk.Limits{MaxPositions: 2, AllocPerTrade: 0.25}
	out := RankAndSize([]signal.Signal{sig("X", 0.03), sig("Y", 0.03), sig("Z", 0.03)}, limits)
	if len(out) != 2 || out[0].Symbol != "X" || out[1].Symbol != "Y" {
		t.Fatalf("expected input order kept on ties, got %+v", out)
	}
}

func TestRankAndSizeEmptyAndDoesNotMutateInput(t *testing.T) {
	limits := risk.Limits{MaxPositions: 3, AllocPerTrade: 0.25}
	if out := RankAndSize(nil, limits); out != nil {
		t.Fatalf("expected nil for no signals")
	}
	in := []signal.Signal{sig("A", 0.01), sig("B", 0.09)}
	_ = RankAndSize(in, limits)
	if in[0].Symbol != "A" {
		t.Fatalf("input slice was reordered")
	}
}
