package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"gaptrader-go/internal/execution"
)

// TradingAPI is the subset of *alpaca.Client the broker uses.
type TradingAPI interface {
	GetAccount() (*alpaca.Account, error)
	GetAssets(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	GetPositions() ([]alpaca.Position, error)
	ClosePosition(symbol string, req alpaca.ClosePositionRequest) (*alpaca.Order, error)
}

// Broker implements execution.Venue against an Alpaca account.
type Broker struct {
	api TradingAPI
}

// NewClient builds the SDK trading client with an HTTP timeout.
func NewClient(creds Credentials, timeout time.Duration) *alpaca.Client {
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:     creds.APIKey,
		APISecret:  creds.APISecret,
		BaseURL:    creds.BaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	})
}

// NewBroker wraps api.
func NewBroker(api TradingAPI) *Broker {
	return &Broker{api: api}
}

// Equity returns account equity.
func (b *Broker) Equity(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	acct, err := b.api.GetAccount()
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	return acct.Equity.InexactFloat64(), nil
}

// Tradable lists active US equities that can be both bought and shorted, in API order.
func (b *Broker) Tradable(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assets, err := b.api.GetAssets(alpaca.GetAssetsRequest{Status: "active", AssetClass: "us_equity"})
	if err != nil {
		return nil, fmt.Errorf("get assets: %w", err)
	}
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Tradable && a.Shortable {
			out = append(out, a.Symbol)
		}
	}
	return out, nil
}

// Submit places a market order.
func (b *Broker) Submit(ctx context.Context, order execution.Order) (execution.Order, error) {
	if err := ctx.Err(); err != nil {
		return order, err
	}
	if order.Qty <= 0 {
		return order, fmt.Errorf("%w: qty %d", execution.ErrInvalidOrder, order.Qty)
	}
	qty := decimal.NewFromInt(order.Qty)
	side := alpaca.Buy
	if order.Side == execution.Sell {
		side = alpaca.Sell
	}
	tif := alpaca.Day
	if order.TimeInForce != "" && !strings.EqualFold(order.TimeInForce, execution.Day) {
		tif = alpaca.TimeInForce(strings.ToLower(order.TimeInForce))
	}
	ack, err := b.api.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        order.Symbol,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Market,
		TimeInForce:   tif,
		ClientOrderID: order.ClientID,
	})
	if err != nil {
		return order, fmt.Errorf("place order %s: %w", order.Symbol, err)
	}
	order.ID = ack.ID
	order.Status = string(ack.Status)
	return order, nil
}

// Positions lists open positions with signed quantity.
func (b *Broker) Positions(ctx context.Context) ([]execution.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := b.api.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	out := make([]execution.Position, 0, len(raw))
	for _, p := range raw {
		qty := p.Qty.InexactFloat64()
		if p.Side == "short" && qty > 0 {
			qty = -qty
		}
		out = append(out, execution.Position{
			Symbol:   p.Symbol,
			Qty:      qty,
			AvgPrice: p.AvgEntryPrice.InexactFloat64(),
		})
	}
	return out, nil
}

// ClosePosition liquidates symbol at market.
func (b *Broker) ClosePosition(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.api.ClosePosition(symbol, alpaca.ClosePositionRequest{}); err != nil {
		return fmt.Errorf("close position %s: %w", symbol, err)
	}
	return nil
}
