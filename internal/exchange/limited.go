package exchange

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"gaptrader-go/internal/signal"
)

// Limited throttles a BarSource and bounds every call with a timeout.
type Limited struct {
	inner   BarSource
	limiter *rate.Limiter
	timeout time.Duration
}

// NewLimited allows perMinute calls per minute (unlimited when <= 0) with a small burst.
func NewLimited(inner BarSource, perMinute int, timeout time.Duration) *Limited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &Limited{
		inner:   inner,
		limiter: rate.NewLimiter(limit, 2),
		timeout: timeout,
	}
}

// History waits for a token, then delegates under the per-call deadline.
func (l *Limited) History(ctx context.Context, symbol string, n int) ([]signal.Bar, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.inner.History(ctx, symbol, n)
}
