package execution

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// DryRun reads account state from an inner venue but only logs submissions and closes.
type DryRun struct {
	inner Venue
	log   zerolog.Logger

	mu     sync.Mutex
	orders []Order
	closed []string
}

// NewDryRun wraps inner so nothing is ever sent to it.
func NewDryRun(inner Venue, log zerolog.Logger) *DryRun {
	return &DryRun{inner: inner, log: log}
}

// Equity delegates to the inner venue.
func (d *DryRun) Equity(ctx context.Context) (float64, error) { return d.inner.Equity(ctx) }

// Tradable delegates to the inner venue.
func (d *DryRun) Tradable(ctx context.Context) ([]string, error) { return d.inner.Tradable(ctx) }

// Positions delegates to the inner venue.
func (d *DryRun) Positions(ctx context.Context) ([]Position, error) { return d.inner.Positions(ctx) }

// Submit logs the order request and acknowledges it locally.
func (d *DryRun) Submit(_ context.Context, order Order) (Order, error) {
	d.mu.Lock()
	order.ID = "dry-" + order.ClientID
	order.Status = "dry_run"
	d.orders = append(d.orders, order)
	d.mu.Unlock()

	d.log.Info().Str("sym", order.Symbol).Str("side", string(order.Side)).Int64("qty", order.Qty).Float64("px", order.RefPrice).Msg("submit order (dry run)")
	return order, nil
}

// ClosePosition logs the liquidation it would have sent.
func (d *DryRun) ClosePosition(_ context.Context, symbol string) error {
	d.mu.Lock()
	d.closed = append(d.closed, symbol)
	d.mu.Unlock()
	d.log.Info().Str("sym", symbol).Msg("close position (dry run)")
	return nil
}

// Orders returns a copy of every order seen so far.
func (d *DryRun) Orders() []Order {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Order, len(d.orders))
	copy(out, d.orders)
	return out
}

// Closed returns the symbols liquidation was requested for.
func (d *DryRun) Closed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.closed))
	copy(out, d.closed)
	return out
}
