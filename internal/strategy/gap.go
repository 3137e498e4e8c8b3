// Package strategy contains the gap signal rule and the ranking/sizing applied to its output.
package strategy

import (
	"fmt"

	"gaptrader-go/internal/signal"
)

// GapDetector flags bars whose open-to-close move clears a threshold on confirmed volume.
type GapDetector struct {
	threshold     float64
	volMultiplier float64
	lookback      int
}

// NewGapDetector builds a detector, replacing non-positive knobs with the defaults.
func NewGapDetector(params Params) *GapDetector {
	def := DefaultParams()
	if params.GapThreshold <= 0 {
		params.GapThreshold = def.GapThreshold
	}
	if params.VolMultiplier <= 0 {
		params.VolMultiplier = def.VolMultiplier
	}
	if params.LookbackVol <= 0 {
		params.LookbackVol = def.LookbackVol
	}
	return &GapDetector{
		threshold:     params.GapThreshold,
		volMultiplier: params.VolMultiplier,
		lookback:      params.LookbackVol,
	}
}

// Name returns the identifier for logging.
func (g *GapDetector) Name() string { return "OvernightGap" }

// Lookback is the number of completed prior bars the volume average needs.
func (g *GapDetector) Lookback() int { return g.lookback }

// Evaluate returns a signal for current, or nil. prior holds completed bars before
// current, oldest first; only the most recent Lookback of them are averaged.
func (g *GapDetector) Evaluate(current signal.Bar, prior []signal.Bar) *signal.Signal {
	if current.Open <= 0 {
		return nil
	}
	avg, ok := AverageVolume(prior, g.lookback)
	if !ok {
		return nil
	}
	if current.Volume < g.volMultiplier*avg {
		return nil
	}

	ret := current.IntradayReturn()
	var dir signal.Direction
	switch {
	case ret >= g.threshold:
		dir = signal.GapUp
	case ret <= -g.threshold:
		dir = signal.GapDown
	default:
		return nil
	}

	strength := ret
	if strength < 0 {
		strength = -strength
	}
	return &signal.Signal{
		Symbol:    current.Symbol,
		Direction: dir,
		Strength:  strength,
		Price:     current.Close,
		Reason:    fmt.Sprintf("ret=%.2f%% vol=%.0f avg=%.0f", ret*100, current.Volume, avg),
		Ts:        current.Ts,
	}
}

// AverageVolume is the mean volume of the last n bars. It reports false when fewer
// than n bars are available or the average is not positive.
func AverageVolume(bars []signal.Bar, n int) (float64, bool) {
	if n <= 0 || len(bars) < n {
		return 0, false
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += b.Volume
	}
	avg := sum / float64(n)
	if avg <= 0 {
		return 0, false
	}
	return avg, true
}
