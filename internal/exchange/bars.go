// Package exchange hosts daily bar sources: the broker's market data API and local CSV history.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gaptrader-go/internal/signal"
)

const (
	// ProviderAlpaca pulls daily bars from the Alpaca market data API.
	ProviderAlpaca = "alpaca"
	// ProviderPaper replays bars saved by cmd/fetch against the simulated account.
	ProviderPaper = "paper"
)

// ErrNoData is returned when a symbol has no usable bars.
var ErrNoData = errors.New("no bar data")

// BarSource returns the most recent n daily bars for a symbol, oldest first.
type BarSource interface {
	History(ctx context.Context, symbol string, n int) ([]signal.Bar, error)
}

// Split fetches lookback+1 bars and separates the latest bar from the ones before it.
// Fewer prior bars than lookback is not an error here; the strategy decides.
func Split(ctx context.Context, src BarSource, symbol string, lookback int) (signal.Bar, []signal.Bar, error) {
	bars, err := src.History(ctx, symbol, lookback+1)
	if err != nil {
		return signal.Bar{}, nil, err
	}
	if len(bars) == 0 {
		return signal.Bar{}, nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	last := len(bars) - 1
	return bars[last], bars[:last], nil
}

// Tail returns at most the last n bars.
func Tail(bars []signal.Bar, n int) []signal.Bar {
	if n <= 0 || len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}

// NormalizeSymbols upper-cases, trims and de-duplicates a ticker list, keeping order.
func NormalizeSymbols(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
