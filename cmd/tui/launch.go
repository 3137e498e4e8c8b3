package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// stopGrace is how long the trader gets to exit at each escalation step.
const stopGrace = 15 * time.Second

type process interface {
	Signal(os.Signal) error
	Kill() error
}

// traderSession is a running trader whose console reads from the menu, not the terminal,
// so only one process ever consumes the operator's keystrokes.
type traderSession struct {
	stdin io.WriteCloser
	done  <-chan error
	proc  process
}

// stop forwards the operator's line to the trader console and waits for the exit.
// A plain ENTER asks for a cooperative stop and the urgent token dumps errors and exits.
// A trader that ignores both is interrupted, then killed.
func (s *traderSession) stop(line string, grace time.Duration) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, _ = io.WriteString(s.stdin, line)
	_ = s.stdin.Close()

	select {
	case err := <-s.done:
		return err
	case <-time.After(grace):
	}
	fmt.Println("trader still running, sending interrupt")
	_ = s.proc.Signal(os.Interrupt)
	select {
	case err := <-s.done:
		return err
	case <-time.After(grace):
	}
	fmt.Println("trader ignored interrupt, killing it")
	_ = s.proc.Kill()
	return <-s.done
}

func launchTrader(reader *bufio.Reader, urgentToken string) {
	bin, cleanup, err := buildTrader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build trader: %v\n", err)
		return
	}
	defer cleanup()

	cmd := exec.Command(bin, "-config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to attach trader console: %v\n", err)
		return
	}
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start trader: %v\n", err)
		return
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	fmt.Printf("\nTrader running. Press ENTER to stop after the current step, or type %q to dump errors and exit now.\n", urgentToken)
	line, _ := reader.ReadString('\n')
	session := &traderSession{stdin: stdin, done: done, proc: cmd.Process}
	if err := session.stop(line, stopGrace); err != nil {
		fmt.Fprintf(os.Stderr, "trader exited: %v\n", err)
		return
	}
	fmt.Println("trader stopped")
}

// buildTrader compiles cmd/trader so the menu signals the trader itself rather than a go run wrapper.
func buildTrader() (string, func(), error) {
	dir, err := os.MkdirTemp("", "gaptrader-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	bin := filepath.Join(dir, "trader")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	fmt.Println("Building trader...")
	build := exec.Command("go", "build", "-o", bin, "./cmd/trader")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		cleanup()
		return "", nil, err
	}
	return bin, cleanup, nil
}
