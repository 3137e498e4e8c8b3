package execution

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gaptrader-go/internal/metrics"
	"gaptrader-go/internal/signal"
)

// ErrorSink receives order failures so they outlive the pass that produced them.
type ErrorSink interface {
	RecordOrderFailure(symbol string, err error)
}

// Router turns sized signals into market day orders on a venue.
type Router struct {
	venue Venue
	mode  Mode
	sink  ErrorSink
	log   zerolog.Logger
	newID func() string
}

// NewRouter builds a router; sink may be nil.
func NewRouter(venue Venue, mode Mode, sink ErrorSink, log zerolog.Logger) *Router {
	return &Router{
		venue: venue,
		mode:  mode,
		sink:  sink,
		log:   log,
		newID: uuid.NewString,
	}
}

// Quantity sizes an order as floor(fraction*equity/price) shares with a one share floor.
func Quantity(fraction, equity, price float64) (int64, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: price %.4f", ErrInvalidOrder, price)
	}
	amount := fraction * equity
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: trade amount %.2f", ErrInvalidOrder, amount)
	}
	qty := int64(math.Floor(amount / price))
	if qty < 1 {
		qty = 1
	}
	return qty, nil
}

// Build computes the order for a sized signal without submitting it.
func (r *Router) Build(sized signal.SizedSignal, equity float64) (Order, error) {
	qty, err := Quantity(sized.Allocation, equity, sized.Price)
	if err != nil {
		return Order{}, err
	}
	return Order{
		Symbol:      sized.Symbol,
		Side:        r.mode.Side(sized.Direction),
		Qty:         qty,
		TimeInForce: Day,
		ClientID:    r.newID(),
		RefPrice:    sized.Price,
	}, nil
}

// Place sizes and submits one order. Failures, including a panicking venue, are recorded
// on the sink and returned; callers keep going with the next signal.
func (r *Router) Place(ctx context.Context, sized signal.SizedSignal, equity float64) (*Order, error) {
	order, err := r.Build(sized, equity)
	if err != nil {
		r.fail(sized.Symbol, err)
		return nil, err
	}
	ack, err := r.submit(ctx, order)
	if err != nil {
		err = fmt.Errorf("submit %s %s x%d: %w", order.Side, order.Symbol, order.Qty, err)
		r.fail(order.Symbol, err)
		return nil, err
	}
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	r.log.Info().
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Int64("qty", order.Qty).
		Float64("px", order.RefPrice).
		Str("id", ack.ID).
		Msgf("placed %s order for %d shares of %s at $%.2f", order.Side, order.Qty, order.Symbol, order.RefPrice)
	return &ack, nil
}

func (r *Router) submit(ctx context.Context, order Order) (ack Order, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("venue panic: %v", rec)
		}
	}()
	return r.venue.Submit(ctx, order)
}

func (r *Router) fail(symbol string, err error) {
	metrics.OrderFailuresTotal.WithLabelValues(symbol).Inc()
	r.log.Error().Err(err).Str("sym", symbol).Msg("order not placed")
	if r.sink != nil {
		r.sink.RecordOrderFailure(symbol, err)
	}
}
