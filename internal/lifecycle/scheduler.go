// Package lifecycle provides the process-level scheduling and
// instrumentation plumbing every long-running component shares: a
// signal-driven context cancellation (generalizing cmd/trader/main.go's
// sigCh/signal.Notify/goto-shutdown pattern into a reusable type) and an
// OpenTelemetry tracer/meter pair threaded through internal/runner (via
// Runner.SetTelemetry) for span-per-tick and counter-per-signal
// instrumentation; internal/executor carries no telemetry.
package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Scheduler owns the root context for a running process: it cancels that
// context the moment SIGINT or SIGTERM arrives, the same trigger the
// teacher's cmd/trader/main.go handled inline with a bare sigCh select.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	sigCh  chan os.Signal
	log    *slog.Logger
}

// New derives a cancellable context from parent and starts listening for
// SIGINT/SIGTERM. Call Wait (typically in its own goroutine) to block
// until a signal arrives or the context is cancelled some other way.
func New(parent context.Context, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return &Scheduler{ctx: ctx, cancel: cancel, sigCh: sigCh, log: logger}
}

// Context is the root context components should run under.
func (s *Scheduler) Context() context.Context { return s.ctx }

// Wait blocks until a shutdown signal arrives or the context is
// cancelled by some other caller, then cancels the context so every
// component bound to it begins its own shutdown path.
func (s *Scheduler) Wait() {
	select {
	case sig, ok := <-s.sigCh:
		if ok {
			s.log.Info("shutdown signal received", "signal", sig.String())
		}
	case <-s.ctx.Done():
	}
	s.cancel()
	signal.Stop(s.sigCh)
}

// Stop cancels the root context directly, without waiting for a signal —
// used by tests and by components that decide to shut the process down
// themselves (e.g. an unrecoverable startup error).
func (s *Scheduler) Stop() { s.cancel() }

// Group runs named background components and logs any error they return
// other than context.Canceled, generalizing the teacher's per-subsystem
// goroutines in internal/app.Run (Portfolio.Run, BuilderTracker.Run), each
// wrapped in an identical "log unless context.Canceled" guard.
type Group struct {
	wg  sync.WaitGroup
	log *slog.Logger
}

// NewGroup builds a Group that logs through logger (or the default
// logger if nil).
func NewGroup(logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.Default()
	}
	return &Group{log: logger}
}

// Go starts fn in its own goroutine under name, for Wait to join later.
func (g *Group) Go(name string, fn func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := fn(); err != nil && err != context.Canceled {
			g.log.Error("component stopped", "component", name, "err", err)
		}
	}()
}

// Wait blocks until every component started with Go has returned.
func (g *Group) Wait() { g.wg.Wait() }
