// Package layer holds the ordered, index-addressed set of layers composited on every cycle.
package layer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/handoff"
)

// ErrIndexOutOfRange is returned for layer writes outside [0, capacity).
var ErrIndexOutOfRange = errors.New("layer index out of range")

// View is a read-only look at one layer taken by Snapshot.
type View struct {
	Index      int
	Visible    bool
	Pixels     []byte
	Pitch      int
	Width      int
	Height     int
	Generation uint64
}

// Pixel returns the straight-alpha color at x, y of the view.
func (v View) Pixel(x, y int) blend.Color {
	i := y*v.Pitch + x*display.BytesPerPixel
	return blend.Color{
		R: v.Pixels[i+display.RedOffset],
		G: v.Pixels[i+display.GreenOffset],
		B: v.Pixels[i+display.BlueOffset],
		A: v.Pixels[i+display.AlphaOffset],
	}
}

// Status reports a layer's visibility and handoff counters.
type Status struct {
	Index     int    `json:"index"`
	Visible   bool   `json:"visible"`
	Published uint64 `json:"published"`
	Consumed  uint64 `json:"consumed"`
}

// Store is a fixed-capacity arena of layers, dense from index 0. Lower indices are further back.
//
// A layer is hidden until its first write, which shows it. After that only Show and Hide change it.
type Store struct {
	mu       sync.RWMutex
	layers   []*Layer
	capacity int
	policy   handoff.Policy
	closed   bool
}

func NewStore(capacity int, policy handoff.Policy) *Store {
	if capacity <= 0 {
		capacity = display.DefaultMaxLayers
	}
	return &Store{
		layers:   make([]*Layer, 0, capacity),
		capacity: capacity,
		policy:   policy,
	}
}

func (s *Store) Cap() int { return s.capacity }

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

func (s *Store) Exists(index int) bool {
	return s.get(index) != nil
}

func (s *Store) get(index int) *Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.layers) {
		return nil
	}
	return s.layers[index]
}

// materialize returns layer index, creating it and every missing layer below it.
func (s *Store) materialize(index int) (*Layer, error) {
	if index < 0 || index >= s.capacity {
		return nil, fmt.Errorf("%w: %d (capacity %d)", ErrIndexOutOfRange, index, s.capacity)
	}
	if l := s.get(index); l != nil {
		return l, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.layers); i <= index; i++ {
		l := newLayer(i, s.policy)
		if s.closed {
			l.handoff.Close()
		}
		s.layers = append(s.layers, l)
	}
	return s.layers[index], nil
}

// Lock grants write access to its back buffer, blocking while its
// previous frame is still in flight. Only this layer's producers wait; the store is never locked meanwhile.
func (s *Store) Lock(index int) (*handoff.WritableBuffer, error) {
	l, err := s.materialize(index)
	if err != nil {
		return nil, err
	}
	l.markWritten()
	return l.handoff.AcquireForWrite()
}

// Publish completes a write started by Lock.
func (s *Store) Publish(index int) error {
	l := s.get(index)
	if l == nil {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return l.handoff.Publish()
}

// Deliver writes one caller-owned frame into layer index.
func (s *Store) Deliver(index int, frame []byte, pitch int) error {
	l, err := s.materialize(index)
	if err != nil {
		return err
	}
	l.markWritten()
	return l.handoff.Deliver(frame, pitch)
}

// Show marks an existing layer visible. Unknown indices are ignored.
func (s *Store) Show(index int) {
	if l := s.get(index); l != nil {
		l.visible.Store(true)
	}
}

// Hide marks an existing layer invisible, keeping its contents. Unknown indices are ignored.
func (s *Store) Hide(index int) {
	if l := s.get(index); l != nil {
		l.visible.Store(false)
	}
}

func (s *Store) list() []*Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Layer(nil), s.layers...)
}

// Snapshot returns every layer in compositing order. It never waits on a producer.
//
// Pixels alias the render-owned front buffers and are only stable on the render goroutine.
func (s *Store) Snapshot() []View {
	layers := s.list()
	views := make([]View, len(layers))
	for i, l := range layers {
		views[i] = View{
			Index:      l.index,
			Visible:    l.visible.Load(),
			Pixels:     l.front.Pix(),
			Pitch:      l.front.Pitch(),
			Width:      l.front.Width(),
			Height:     l.front.Height(),
			Generation: l.generation.Load(),
		}
	}
	return views
}

// Drain copies every ready frame into its layer's front buffer and returns how many layers changed.
// It must only be called from the render goroutine.
func (s *Store) Drain() int {
	changed := 0
	for _, l := range s.list() {
		if l.drain() {
			changed++
		}
	}
	return changed
}

func (s *Store) Status() []Status {
	layers := s.list()
	out := make([]Status, len(layers))
	for i, l := range layers {
		st := l.Stats()
		out[i] = Status{Index: l.index, Visible: l.Visible(), Published: st.Published, Consumed: st.Consumed}
	}
	return out
}

// Close wakes every blocked producer with handoff.ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, l := range s.layers {
		l.handoff.Close()
	}
}
