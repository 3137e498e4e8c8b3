// Package console turns operator input into stop requests.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"gaptrader-go/internal/engine"
)

// DefaultUrgentToken forces an immediate exit when typed on its own line.
const DefaultUrgentToken = "now"

// Coordinator reads operator lines from a single task.
// The urgent token dumps the error log and exits; any other line requests a cooperative stop.
type Coordinator struct {
	in    io.Reader
	out   io.Writer
	state *engine.State
	token string
	exit  func(code int)
	log   zerolog.Logger
}

// NewCoordinator builds a coordinator. exit is called on the urgent path and must not return
// in production (os.Exit).
func NewCoordinator(in io.Reader, out io.Writer, state *engine.State, token string, exit func(int), log zerolog.Logger) *Coordinator {
	if token == "" {
		token = DefaultUrgentToken
	}
	return &Coordinator{in: in, out: out, state: state, token: token, exit: exit, log: log}
}

// Prompt prints the operator instructions.
func (c *Coordinator) Prompt() {
	fmt.Fprintf(c.out, "press Enter to stop after the current step, or type %q to exit immediately\n", c.token)
}

// Run consumes input until EOF, ctx cancellation or the urgent token.
func (c *Coordinator) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if c.Handle(line) {
				return nil
			}
		}
	}
}

// Handle applies one line of input and reports whether the urgent path ran.
func (c *Coordinator) Handle(line string) bool {
	if strings.TrimSpace(line) == c.token {
		c.log.Warn().Msg("urgent stop requested, exiting without cleanup")
		c.state.DumpErrors(c.out)
		c.exit(0)
		return true
	}
	if !c.state.StopRequested() {
		c.log.Info().Msg("stop requested, finishing current step")
		fmt.Fprintln(c.out, "stopping after the current step...")
	}
	c.state.RequestStop()
	return false
}
