package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaptrader-go/internal/engine"
	"gaptrader-go/internal/execution"
	"gaptrader-go/internal/paper"
)

var (
	_ paper.FillRecorder   = (*Store)(nil)
	_ engine.ErrorObserver = (*Store)(nil)
)

func TestStoreFillsAndErrors(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "db", "journal.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2025, 5, 1, 3, 51, 0, 0, time.UTC)
	store.Record(execution.Fill{OrderID: "paper-2", Symbol: "TSLA", Side: execution.Buy, Qty: 3, Price: 250, Ts: base.Add(time.Minute)})
	store.Record(execution.Fill{OrderID: "paper-1", Symbol: "V", Side: execution.Sell, Qty: 10, Price: 280, Fee: 0.28, Ts: base})

	fills, err := store.Fills(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, "V", fills[0].Symbol)
	assert.Equal(t, "SELL", fills[0].Side)
	assert.InDelta(t, 0.28, fills[0].Fee, 1e-9)

	state := engine.NewState(store)
	state.Record(engine.KindDataUnavailable, "OMEX", errors.New("no bar data"))
	state.RecordOrderFailure("PTNM", errors.New("not shortable"))

	rows, err := store.Errors(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	kinds := []string{rows[0].Kind, rows[1].Kind}
	assert.ElementsMatch(t, []string{"data_unavailable", "order_submission"}, kinds)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ", zerolog.Nop())
	assert.Error(t, err)
}
