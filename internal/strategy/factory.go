package strategy

import (
	"fmt"
	"strings"

	"gaptrader-go/internal/signal"
)

// Strategy defines behaviour shared by daily-bar signal rules used by the bot.
type Strategy interface {
	Evaluate(current signal.Bar, prior []signal.Bar) *signal.Signal
	Lookback() int
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	GapThreshold  float64
	VolMultiplier float64
	LookbackVol   int
}

// DefaultParams are the knobs the strategy was tuned with.
func DefaultParams() Params {
	return Params{GapThreshold: 0.02, VolMultiplier: 1.5, LookbackVol: 20}
}

// Build returns a strategy implementation matching the configured name.
func Build(name string, params Params) (Strategy, error) {
	if !Known(name) {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return NewGapDetector(params), nil
}

// Known reports whether Build recognizes name.
func Known(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gap", "overnight_gap", "gap_reversion":
		return true
	}
	return false
}
