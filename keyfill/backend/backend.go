package backend

import (
	"github.com/valerio/go-keyfill/keyfill/input/action"
	"github.com/valerio/go-keyfill/keyfill/input/event"
	"github.com/valerio/go-keyfill/keyfill/render"
)

// Backend is an output platform for the Key+Fill canvas.
// Backends are responsible for:
// - Providing the render.Target the compositor draws on
// - Polling platform events (keyboard, window close) and translating them to InputEvents
// - Backend-specific output such as periodic snapshots or a terminal preview
//
// Every method is called from the render goroutine.
type Backend interface {
	// Init opens the output. It is required before Target and Update.
	Init(config BackendConfig) error

	// Target returns the surface to composite on. Valid after Init.
	Target() render.Target

	// Update runs after each presented canvas. It polls platform input and returns the actions
	// it produced.
	Update() ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// InputEvent is one operator action raised by a backend.
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// BackendConfig holds configuration for backends
type BackendConfig struct {
	Title      string
	X, Y       int  // window position, ignored by windowless backends
	Fullscreen bool // SDL2 only
	VSync      bool // SDL2 only
	Workers    int  // software target row bands, 0 = GOMAXPROCS

	// Status returns a one-line summary of the output state for backends that display one.
	Status func() string
}
