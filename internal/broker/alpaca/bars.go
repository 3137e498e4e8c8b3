package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"gaptrader-go/internal/exchange"
	"gaptrader-go/internal/signal"
)

// BarsAPI is the subset of *marketdata.Client used for daily bars.
type BarsAPI interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// NewMarketDataClient builds the SDK market data client.
func NewMarketDataClient(creds Credentials, feed string, timeout time.Duration) *marketdata.Client {
	return marketdata.NewClient(marketdata.ClientOpts{
		APIKey:     creds.APIKey,
		APISecret:  creds.APISecret,
		Feed:       marketdata.Feed(feed),
		HTTPClient: &http.Client{Timeout: timeout},
	})
}

// Bars is an exchange.BarSource backed by Alpaca daily bars.
type Bars struct {
	api BarsAPI
	now func() time.Time
}

// NewBars wraps api.
func NewBars(api BarsAPI) *Bars {
	return &Bars{api: api, now: time.Now}
}

// Range returns split and dividend adjusted daily bars between start and end.
func (b *Bars) Range(ctx context.Context, symbol string, start, end time.Time) ([]signal.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := b.api.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Adjustment("all"),
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("get bars %s: %w", symbol, err)
	}
	out := make([]signal.Bar, 0, len(raw))
	for _, r := range raw {
		out = append(out, signal.Bar{
			Symbol: symbol,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: float64(r.Volume),
			Ts:     r.Timestamp,
		})
	}
	return out, nil
}

// History requests enough calendar days to cover n sessions and returns the last n bars.
func (b *Bars) History(ctx context.Context, symbol string, n int) ([]signal.Bar, error) {
	end := b.now()
	start := end.AddDate(0, 0, -(2*n + 14))
	bars, err := b.Range(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", exchange.ErrNoData, symbol)
	}
	return exchange.Tail(bars, n), nil
}
