package keyfill

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/valerio/go-keyfill/keyfill/backend"
	"github.com/valerio/go-keyfill/keyfill/debug"
	"github.com/valerio/go-keyfill/keyfill/input"
	"github.com/valerio/go-keyfill/keyfill/input/action"
	"github.com/valerio/go-keyfill/keyfill/input/event"
	"github.com/valerio/go-keyfill/keyfill/timing"
)

// Loop is the render goroutine: drain ready layers, composite, present, poll input, pace.
type Loop struct {
	state       *State
	compositor  *Compositor
	backend     backend.Backend
	limiter     timing.Limiter
	input       *input.Manager
	snapshotDir string
	quit        bool
}

// NewLoop wires a loop over an initialized backend. Quit and Snapshot are handled by the loop;
// other actions are registered by the caller through Input.
func NewLoop(state *State, b backend.Backend, limiter timing.Limiter, snapshotDir string) *Loop {
	l := &Loop{
		state:       state,
		compositor:  NewCompositor(),
		backend:     b,
		limiter:     limiter,
		input:       input.NewManager(),
		snapshotDir: snapshotDir,
	}
	l.input.On(action.Quit, event.Press, func() {
		l.quit = true
	})
	l.input.On(action.Snapshot, event.Press, func() {
		debug.TakeSnapshot(l.backend.Target(), l.snapshotDir)
	})
	return l
}

func (l *Loop) Input() *input.Manager   { return l.input }
func (l *Loop) Compositor() *Compositor { return l.compositor }

// Step runs one cycle and reports whether a Quit action arrived.
func (l *Loop) Step() (bool, error) {
	store := l.state.Layers()
	store.Drain()

	mode := l.state.Mode()
	if err := l.compositor.Cycle(mode, store.Snapshot(), l.backend.Target()); err != nil {
		slog.Warn("Compositor cycle incomplete", "mode", mode, "error", err)
	}

	events, err := l.backend.Update()
	if err != nil {
		return false, fmt.Errorf("backend update: %w", err)
	}
	for _, evt := range events {
		l.input.Trigger(evt.Action, evt.Type)
	}
	return l.quit, nil
}

// Run steps until ctx is cancelled or a Quit action arrives. It locks the calling goroutine to its
// OS thread, since GPU backends require every call to come from the thread that created the context.
func (l *Loop) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	slog.Info("Render loop started", "mode", l.state.Mode(), "layers", l.state.Layers().Cap())
	defer func() {
		st := l.compositor.Stats()
		slog.Info("Render loop stopped", "cycles", st.Cycles, "failures", st.Failures)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		quit, err := l.Step()
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		l.limiter.WaitForNextFrame()
	}
}
