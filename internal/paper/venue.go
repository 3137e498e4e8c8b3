package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gaptrader-go/internal/execution"
)

// FillRecorder receives every simulated execution.
type FillRecorder interface {
	Record(fill execution.Fill)
}

// Venue fills market orders against an Account at the last known mark.
type Venue struct {
	account   *Account
	mu        sync.Mutex
	marks     map[string]float64
	symbols   []string
	recorders []FillRecorder
	seq       int
	now       func() time.Time
}

// NewVenue wraps account. symbols is the universe reported by Tradable.
func NewVenue(account *Account, symbols []string, recorders ...FillRecorder) *Venue {
	return &Venue{
		account:   account,
		marks:     make(map[string]float64),
		symbols:   append([]string(nil), symbols...),
		recorders: recorders,
		now:       time.Now,
	}
}

// SetClock overrides the timestamp source used on fills.
func (v *Venue) SetClock(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// SetMark records the price at which the next fill for symbol executes.
func (v *Venue) SetMark(symbol string, price float64) {
	v.mu.Lock()
	v.marks[symbol] = price
	v.mu.Unlock()
}

// SetMarks replaces marks for every symbol in prices.
func (v *Venue) SetMarks(prices map[string]float64) {
	v.mu.Lock()
	for sym, px := range prices {
		v.marks[sym] = px
	}
	v.mu.Unlock()
}

func (v *Venue) markSnapshot() map[string]float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]float64, len(v.marks))
	for k, px := range v.marks {
		out[k] = px
	}
	return out
}

// Account exposes the underlying account.
func (v *Venue) Account() *Account { return v.account }

// Equity marks the account to the current marks.
func (v *Venue) Equity(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return v.account.Snapshot(v.markSnapshot()).Equity, nil
}

// Tradable returns the configured universe.
func (v *Venue) Tradable(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), v.symbols...), nil
}

// Submit fills the order in full at the symbol's mark.
func (v *Venue) Submit(ctx context.Context, order execution.Order) (execution.Order, error) {
	if err := ctx.Err(); err != nil {
		return order, err
	}
	if order.Qty <= 0 {
		return order, fmt.Errorf("%w: qty %d", execution.ErrInvalidOrder, order.Qty)
	}
	price := v.markSnapshot()[order.Symbol]
	if price <= 0 {
		price = order.RefPrice
	}
	if price <= 0 {
		return order, fmt.Errorf("%w: no mark for %s", execution.ErrInvalidOrder, order.Symbol)
	}
	fee, err := v.account.MarketFill(order.Symbol, order.Side, float64(order.Qty), price)
	if err != nil {
		return order, err
	}
	order.ID = v.nextID()
	order.Status = "filled"
	v.record(execution.Fill{
		OrderID: order.ID,
		Symbol:  order.Symbol,
		Side:    order.Side,
		Qty:     float64(order.Qty),
		Price:   price,
		Fee:     fee,
		Ts:      v.now(),
	})
	return order, nil
}

// Positions lists open positions.
func (v *Venue) Positions(ctx context.Context) ([]execution.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.account.Positions(), nil
}

// ClosePosition flattens symbol at its mark, falling back to average cost.
func (v *Venue) ClosePosition(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	qty := v.account.Position(symbol)
	if qty == 0 {
		return errors.New("no open position in " + symbol)
	}
	side := execution.Sell
	if qty < 0 {
		side = execution.Buy
		qty = -qty
	}
	price := v.markSnapshot()[symbol]
	if price <= 0 {
		price = v.account.Snapshot(nil).Positions[symbol].AvgCost
	}
	fee, err := v.account.MarketFill(symbol, side, qty, price)
	if err != nil {
		return fmt.Errorf("close %s: %w", symbol, err)
	}
	v.record(execution.Fill{
		OrderID: v.nextID(),
		Symbol:  symbol,
		Side:    side,
		Qty:     qty,
		Price:   price,
		Fee:     fee,
		Ts:      v.now(),
	})
	return nil
}

func (v *Venue) nextID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	return fmt.Sprintf("paper-%d", v.seq)
}

func (v *Venue) record(fill execution.Fill) {
	for _, rec := range v.recorders {
		if rec != nil {
			rec.Record(fill)
		}
	}
}
