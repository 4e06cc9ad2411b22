package keyfill

import (
	"fmt"
	"sync/atomic"

	"github.com/valerio/go-keyfill/keyfill/layer"
)

// DisplayMode selects what the compositor outputs.
type DisplayMode int32

const (
	// Show composites the visible layers.
	Show DisplayMode = iota
	// Clear outputs a fully transparent canvas.
	Clear
	// Black outputs a black Fill pane and a fully open (white) Key pane.
	Black
)

func (m DisplayMode) String() string {
	switch m {
	case Show:
		return "show"
	case Clear:
		return "clear"
	case Black:
		return "black"
	}
	return fmt.Sprintf("mode(%d)", int32(m))
}

func (m DisplayMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseDisplayMode maps show, clear or black to its mode.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch s {
	case "show":
		return Show, nil
	case "clear":
		return Clear, nil
	case "black":
		return Black, nil
	}
	return Show, fmt.Errorf("unknown display mode %q", s)
}

// State is shared by the render loop and the control plane.
type State struct {
	mode   atomic.Int32
	layers *layer.Store
}

func NewState(layers *layer.Store, mode DisplayMode) *State {
	s := &State{layers: layers}
	s.mode.Store(int32(mode))
	return s
}

func (s *State) Mode() DisplayMode {
	return DisplayMode(s.mode.Load())
}

func (s *State) SetMode(m DisplayMode) {
	s.mode.Store(int32(m))
}

func (s *State) Layers() *layer.Store {
	return s.layers
}
