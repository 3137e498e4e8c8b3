// Package execution handles order sizing, routing and the venues orders are sent to.
package execution

import (
	"context"
	"errors"
	"time"
)

// Side enumerates order directions used by the router.
type Side string

const (
	// Buy opens or adds to a long, or covers a short.
	Buy Side = "BUY"
	// Sell opens or adds to a short, or reduces a long.
	Sell Side = "SELL"
)

// TimeInForce values supported by the router.
const (
	// Day orders expire at the end of the session.
	Day = "day"
)

// ErrInvalidOrder is returned for orders that cannot be sized or submitted.
var ErrInvalidOrder = errors.New("invalid order")

// Order represents a market order request and, once submitted, the venue's acknowledgement.
type Order struct {
	Symbol      string
	Side        Side
	Qty         int64
	TimeInForce string
	ClientID    string
	RefPrice    float64 // price used for sizing; market orders carry no limit

	ID     string
	Status string
}

// Fill records an execution against a venue.
type Fill struct {
	OrderID string    `json:"order_id"`
	Symbol  string    `json:"symbol"`
	Side    Side      `json:"side"`
	Qty     float64   `json:"qty"`
	Price   float64   `json:"price"`
	Fee     float64   `json:"fee"`
	Ts      time.Time `json:"ts"`
}

// Position is an open holding; Qty is negative for shorts.
type Position struct {
	Symbol   string
	Qty      float64
	AvgPrice float64
}

// Venue is where orders go: the live broker or the simulated account.
type Venue interface {
	// Equity returns current account equity.
	Equity(ctx context.Context) (float64, error)
	// Tradable lists symbols that can be both bought and shorted, in a stable order.
	Tradable(ctx context.Context) ([]string, error)
	// Submit sends a market order and returns the acknowledged order.
	Submit(ctx context.Context, order Order) (Order, error)
	// Positions lists currently open positions.
	Positions(ctx context.Context) ([]Position, error)
	// ClosePosition liquidates the whole position in symbol.
	ClosePosition(ctx context.Context, symbol string) error
}
