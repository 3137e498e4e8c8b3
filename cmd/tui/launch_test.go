package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"
)

type fakeProcess struct {
	mu      sync.Mutex
	signals []os.Signal
	killed  bool
	onSig   func(os.Signal)
}

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	cb := p.onSig
	p.mu.Unlock()
	if cb != nil {
		cb(sig)
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	return nil
}

// consoleReader stands in for the trader console: it reports every line it reads.
func consoleReader(r io.Reader) <-chan string {
	lines := make(chan string, 4)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func TestStopForwardsLineToTraderConsole(t *testing.T) {
	pr, pw := io.Pipe()
	lines := consoleReader(pr)
	done := make(chan error, 1)
	go func() {
		if line := <-lines; line == "now" {
			done <- nil
		} else {
			done <- errors.New("unexpected line " + line)
		}
	}()

	session := &traderSession{stdin: pw, done: done, proc: &fakeProcess{}}
	if err := session.stop("now\n", time.Second); err != nil {
		t.Fatalf("stop returned %v", err)
	}
}

func TestStopSendsNewlineOnEOF(t *testing.T) {
	pr, pw := io.Pipe()
	lines := consoleReader(pr)
	done := make(chan error, 1)
	go func() {
		if line := <-lines; line != "" {
			done <- errors.New("expected an empty line, got " + line)
			return
		}
		done <- nil
	}()

	session := &traderSession{stdin: pw, done: done, proc: &fakeProcess{}}
	if err := session.stop("", time.Second); err != nil {
		t.Fatalf("stop returned %v", err)
	}
}

func TestStopEscalatesToInterrupt(t *testing.T) {
	pr, pw := io.Pipe()
	go func() { _, _ = io.Copy(io.Discard, pr) }()
	done := make(chan error, 1)
	proc := &fakeProcess{onSig: func(os.Signal) { done <- nil }}

	session := &traderSession{stdin: pw, done: done, proc: proc}
	if err := session.stop("\n", 20*time.Millisecond); err != nil {
		t.Fatalf("stop returned %v", err)
	}
	if len(proc.signals) != 1 || proc.signals[0] != os.Interrupt || proc.killed {
		t.Fatalf("expected a single interrupt and no kill, got %+v killed=%v", proc.signals, proc.killed)
	}
}

func TestStopKillsStuckTrader(t *testing.T) {
	pr, pw := io.Pipe()
	go func() { _, _ = io.Copy(io.Discard, pr) }()
	done := make(chan error, 1)
	proc := &fakeProcess{}
	go func() {
		for {
			proc.mu.Lock()
			killed := proc.killed
			proc.mu.Unlock()
			if killed {
				done <- errors.New("signal: killed")
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	session := &traderSession{stdin: pw, done: done, proc: proc}
	if err := session.stop("\n", 20*time.Millisecond); err == nil {
		t.Fatalf("expected the kill to surface as an error")
	}
	if !proc.killed {
		t.Fatalf("expected trader to be killed")
	}
}
