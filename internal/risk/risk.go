// Package risk holds the position-count and allocation guard-rails applied to ranked signals.
package risk

import "math"

// Limits caps how many signals are taken per pass and how much equity each may use.
type Limits struct {
	MaxPositions  int
	AllocPerTrade float64
}

// Take returns how many of n ranked signals may be acted on.
func (l Limits) Take(n int) int {
	if n <= 0 || l.MaxPositions <= 0 {
		return 0
	}
	if n > l.MaxPositions {
		return l.MaxPositions
	}
	return n
}

// Allocation is the equal-weight fraction given to each of count selected signals.
func (l Limits) Allocation(count int) float64 {
	if count <= 0 || l.AllocPerTrade <= 0 {
		return 0
	}
	return math.Min(l.AllocPerTrade, 1.0/float64(count))
}

// Allow reports whether a fraction of equity is within the per-trade ceiling.
func (l Limits) Allow(fraction float64) bool {
	return fraction > 0 && fraction <= l.AllocPerTrade && fraction <= 1
}
