package ui

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
)

// SignalGate is an authflow.InteractionGate for terminals. While locked, an
// interrupt (ctrl+c) cancels the running flow instead of killing the process,
// so the flow can still unwind and report canceled-by-user.
type SignalGate struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	sigs   chan os.Signal
	stop   chan struct{}
	locked bool
}

// NewSignalGate returns a gate that calls cancel on interrupt while locked.
func NewSignalGate(cancel context.CancelFunc) *SignalGate {
	return &SignalGate{cancel: cancel}
}

func (g *SignalGate) Lock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return
	}
	g.locked = true
	g.sigs = make(chan os.Signal, 1)
	g.stop = make(chan struct{})
	signal.Notify(g.sigs, os.Interrupt)

	go func(sigs <-chan os.Signal, stop <-chan struct{}) {
		select {
		case <-sigs:
			slog.Info("interrupt received, cancelling auth flow")
			if g.cancel != nil {
				g.cancel()
			}
		case <-stop:
		}
	}(g.sigs, g.stop)
}

func (g *SignalGate) Unlock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.locked {
		return
	}
	g.locked = false
	signal.Stop(g.sigs)
	close(g.stop)
}

// Locked reports whether the gate is currently held.
func (g *SignalGate) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}
