package exchange

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaptrader-go/internal/signal"
)

func TestCSVStoreLoadsTestdata(t *testing.T) {
	store := NewCSVStore("testdata")
	bars, err := store.Load("spy")
	require.NoError(t, err)
	require.Len(t, bars, 4)
	assert.Equal(t, "SPY", bars[0].Symbol)
	assert.Equal(t, 472.16, bars[0].Open)
	assert.Equal(t, 86060800.0, bars[3].Volume)
	assert.True(t, bars[0].Ts.Before(bars[3].Ts))
}

func TestCSVStoreSaveRoundTrip(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	in := []signal.Bar{
		{Open: 11, High: 12, Low: 10, Close: 11.5, Volume: 2000, Ts: day.AddDate(0, 0, 1)},
		{Open: 10, High: 11, Low: 9.5, Close: 10.25, Volume: 1000, Ts: day},
	}
	require.NoError(t, store.Save("hims", in))

	out, err := store.Load("HIMS")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 10.25, out[0].Close, "bars are written oldest first")
	assert.Equal(t, "HIMS", out[1].Symbol)

	syms, err := store.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"HIMS"}, syms)
}

func TestCSVStoreMissingSymbol(t *testing.T) {
	_, err := NewCSVStore(t.TempDir()).Load("NOPE")
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestReadCSVRejectsMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Date,Open,Close\n2024-01-02,1,2\n"), "X")
	assert.Error(t, err)
}

func TestReadCSVAcceptsTimezoneDates(t *testing.T) {
	raw := "Date,Open,High,Low,Close,Volume\n2024-01-02 00:00:00-05:00,1,2,0.5,1.5,100\n"
	bars, err := ReadCSV(strings.NewReader(raw), "X")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 2, bars[0].Ts.Day())
}

func TestSplitSeparatesLatestBar(t *testing.T) {
	current, prior, err := Split(context.Background(), NewCSVStore("testdata"), "SPY", 2)
	require.NoError(t, err)
	assert.Equal(t, 467.92, current.Close)
	require.Len(t, prior, 2)
	assert.Equal(t, 468.79, prior[0].Close)
}

func TestNormalizeSymbols(t *testing.T) {
	assert.Equal(t, []string{"SPY", "QQQ"}, NormalizeSymbols([]string{" spy", "QQQ", "", "Spy"}))
}

type countingSource struct{ calls atomic.Int32 }

func (c *countingSource) History(ctx context.Context, symbol string, n int) ([]signal.Bar, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected deadline")
	}
	return []signal.Bar{{Symbol: symbol}}, nil
}

func TestLimitedAppliesTimeoutAndHonoursCancel(t *testing.T) {
	inner := &countingSource{}
	limited := NewLimited(inner, 0, time.Second)
	_, err := limited.History(context.Background(), "SPY", 1)
	require.NoError(t, err)

	throttled := NewLimited(inner, 1, time.Second)
	for i := 0; i < 2; i++ {
		_, err := throttled.History(context.Background(), "SPY", 1)
		require.NoError(t, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = throttled.History(ctx, "SPY", 1)
	assert.Error(t, err, "third call exceeds the burst and must not wait past the context")
	assert.Equal(t, int32(3), inner.calls.Load())
}
