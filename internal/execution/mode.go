package execution

import (
	"fmt"
	"strings"

	"gaptrader-go/internal/signal"
)

// Mode maps gap directions to order sides.
type Mode string

const (
	// ModeRevert bets against the gap: sell gap ups, buy gap downs.
	ModeRevert Mode = "revert"
	// ModeMomentum bets with the gap: buy gap ups, sell gap downs.
	ModeMomentum Mode = "momentum"
	// ModeBoth is accepted for compatibility and trades the revert mapping.
	ModeBoth Mode = "both"
)

// ParseMode normalizes a configured mode. An empty value means revert.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeRevert:
		return ModeRevert, nil
	case ModeMomentum:
		return ModeMomentum, nil
	case ModeBoth:
		return ModeBoth, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want revert, momentum or both)", raw)
	}
}

// AliasOf reports the mapping a mode actually trades.
func (m Mode) AliasOf() Mode {
	if m == ModeBoth {
		return ModeRevert
	}
	return m
}

// Side returns the order side for a gap direction under this mode.
func (m Mode) Side(dir signal.Direction) Side {
	up := dir == signal.GapUp
	if m.AliasOf() == ModeMomentum {
		if up {
			return Buy
		}
		return Sell
	}
	if up {
		return Sell
	}
	return Buy
}
