package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaptrader-go/internal/exchange"
	"gaptrader-go/internal/execution"
)

type fakeTrading struct {
	equity    decimal.Decimal
	assets    []alpaca.Asset
	positions []alpaca.Position
	placed    []alpaca.PlaceOrderRequest
	closed    []string
	placeErr  error
}

func (f *fakeTrading) GetAccount() (*alpaca.Account, error) {
	return &alpaca.Account{Equity: f.equity}, nil
}

func (f *fakeTrading) GetAssets(alpaca.GetAssetsRequest) ([]alpaca.Asset, error) {
	return f.assets, nil
}

func (f *fakeTrading) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = append(f.placed, req)
	return &alpaca.Order{ID: "ord-1", Status: "accepted"}, nil
}

func (f *fakeTrading) GetPositions() ([]alpaca.Position, error) {
	return f.positions, nil
}

func (f *fakeTrading) ClosePosition(symbol string, _ alpaca.ClosePositionRequest) (*alpaca.Order, error) {
	f.closed = append(f.closed, symbol)
	return &alpaca.Order{}, nil
}

func TestBrokerTradableFiltersShortable(t *testing.T) {
	api := &fakeTrading{assets: []alpaca.Asset{
		{Symbol: "SPY", Tradable: true, Shortable: true},
		{Symbol: "OTC", Tradable: true, Shortable: false},
		{Symbol: "HALT", Tradable: false, Shortable: true},
		{Symbol: "AAPL", Tradable: true, Shortable: true},
	}}
	syms, err := NewBroker(api).Tradable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "AAPL"}, syms)
}

func TestBrokerSubmitMapsOrder(t *testing.T) {
	api := &fakeTrading{}
	broker := NewBroker(api)
	ack, err := broker.Submit(context.Background(), execution.Order{
		Symbol: "TSLA", Side: execution.Sell, Qty: 12, TimeInForce: execution.Day, ClientID: "cid",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", ack.ID)
	require.Len(t, api.placed, 1)
	req := api.placed[0]
	assert.Equal(t, alpaca.Sell, req.Side)
	assert.Equal(t, alpaca.Market, req.Type)
	assert.Equal(t, alpaca.Day, req.TimeInForce)
	assert.Equal(t, "cid", req.ClientOrderID)
	assert.True(t, req.Qty.Equal(decimal.NewFromInt(12)))
}

func TestBrokerSubmitWrapsErrors(t *testing.T) {
	api := &fakeTrading{placeErr: errors.New("insufficient buying power")}
	_, err := NewBroker(api).Submit(context.Background(), execution.Order{Symbol: "X", Side: execution.Buy, Qty: 1})
	assert.ErrorContains(t, err, "insufficient buying power")
}

func TestBrokerEquityAndPositions(t *testing.T) {
	api := &fakeTrading{
		equity: decimal.RequireFromString("100000.50"),
		positions: []alpaca.Position{
			{Symbol: "NVDA", Qty: decimal.NewFromInt(3), Side: "long", AvgEntryPrice: decimal.NewFromInt(120)},
			{Symbol: "HOOD", Qty: decimal.NewFromInt(-4), Side: "short", AvgEntryPrice: decimal.NewFromInt(20)},
		},
	}
	broker := NewBroker(api)
	eq, err := broker.Equity(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 100000.50, eq, 1e-9)

	pos, err := broker.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, pos, 2)
	assert.Equal(t, -4.0, pos[1].Qty)

	require.NoError(t, broker.ClosePosition(context.Background(), "HOOD"))
	assert.Equal(t, []string{"HOOD"}, api.closed)
}

type fakeBars struct {
	req  marketdata.GetBarsRequest
	bars []marketdata.Bar
}

func (f *fakeBars) GetBars(_ string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.req = req
	return f.bars, nil
}

func TestBarsHistoryTakesTail(t *testing.T) {
	day := time.Date(2025, 1, 2, 5, 0, 0, 0, time.UTC)
	api := &fakeBars{}
	for i := 0; i < 30; i++ {
		api.bars = append(api.bars, marketdata.Bar{Timestamp: day.AddDate(0, 0, i), Open: 10, Close: float64(i), Volume: uint64(100 + i)})
	}
	bars := NewBars(api)
	bars.now = func() time.Time { return day.AddDate(0, 0, 40) }

	out, err := bars.History(context.Background(), "SMR", 21)
	require.NoError(t, err)
	require.Len(t, out, 21)
	assert.Equal(t, 29.0, out[20].Close)
	assert.Equal(t, "SMR", out[0].Symbol)
	assert.Equal(t, marketdata.OneDay, api.req.TimeFrame)
	assert.True(t, api.req.Start.Before(day.AddDate(0, 0, 40-42)))
}

func TestBarsHistoryEmptyIsNoData(t *testing.T) {
	_, err := NewBars(&fakeBars{}).History(context.Background(), "NBIS", 21)
	assert.ErrorIs(t, err, exchange.ErrNoData)
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "key")
	t.Setenv("APCA_API_SECRET_KEY", "secret")
	t.Setenv("APCA_API_BASE_URL", "")
	creds, err := LoadCredentials("https://paper-api.alpaca.markets", "does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, "key", creds.APIKey)
	assert.Equal(t, "https://paper-api.alpaca.markets", creds.BaseURL)

	t.Setenv("APCA_API_SECRET_KEY", "")
	t.Setenv("ALPACA_SECRET_KEY", "")
	_, err = LoadCredentials("")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
