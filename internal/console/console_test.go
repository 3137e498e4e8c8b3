package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaptrader-go/internal/engine"
)

func TestEnterRequestsCooperativeStop(t *testing.T) {
	state := engine.NewState()
	var out bytes.Buffer
	exited := false
	c := NewCoordinator(strings.NewReader("\n"), &out, state, "", func(int) { exited = true }, zerolog.Nop())

	require.NoError(t, c.Run(context.Background()))
	assert.True(t, state.StopRequested())
	assert.False(t, exited)
	assert.Contains(t, out.String(), "stopping")
}

func TestUrgentTokenDumpsErrorsAndExits(t *testing.T) {
	state := engine.NewState()
	state.Record(engine.KindOrderSubmission, "SPY", errors.New("rejected"))
	var out bytes.Buffer
	code := -1
	c := NewCoordinator(strings.NewReader("hello\n now \nignored\n"), &out, state, "now", func(c int) { code = c }, zerolog.Nop())

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 0, code)
	assert.True(t, state.StopRequested(), "earlier line already asked for a graceful stop")
	assert.Contains(t, out.String(), "SPY")
	assert.Contains(t, out.String(), "rejected")
}

func TestTokenMustMatchExactly(t *testing.T) {
	state := engine.NewState()
	exited := false
	c := NewCoordinator(strings.NewReader(""), io.Discard, state, "now", func(int) { exited = true }, zerolog.Nop())
	assert.False(t, c.Handle("now please"))
	assert.False(t, exited)
	assert.True(t, state.StopRequested())
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := NewCoordinator(pr, io.Discard, engine.NewState(), "now", func(int) {}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not return after cancel")
	}
}
