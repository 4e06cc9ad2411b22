package layer

import (
	"log/slog"
	"sync/atomic"

	"github.com/valerio/go-keyfill/keyfill/handoff"
	"github.com/valerio/go-keyfill/keyfill/video"
)

// Layer is one addressable pixel buffer of the composition.
//
// Producers write through the handoff; only the render goroutine touches front, on Drain.
type Layer struct {
	index      int
	visible    atomic.Bool
	written    atomic.Bool
	handoff    *handoff.Handoff
	front      *video.FrameBuffer
	generation atomic.Uint64
}

func newLayer(index int, policy handoff.Policy) *Layer {
	front := video.NewLayerFrame()
	return &Layer{
		index:   index,
		handoff: handoff.New(policy, front.Width(), front.Height()),
		front:   front,
	}
}

func (l *Layer) Index() int {
	return l.index
}

func (l *Layer) Visible() bool {
	return l.visible.Load()
}

func (l *Layer) Generation() uint64 {
	return l.generation.Load()
}

func (l *Layer) Stats() handoff.Stats {
	return l.handoff.Stats()
}

func (l *Layer) Front() *video.FrameBuffer {
	return l.front
}

// markWritten shows the layer on its first write. Later writes leave visibility to Show and Hide.
func (l *Layer) markWritten() {
	if l.written.CompareAndSwap(false, true) {
		l.visible.Store(true)
	}
}

// drain copies a ready frame into the front buffer and reports whether one was taken.
func (l *Layer) drain() bool {
	taken := l.handoff.TakeReady(func(pix []byte, pitch int) {
		if err := l.front.CopyFrom(pix, pitch); err != nil {
			slog.Warn("Dropping malformed frame", "layer", l.index, "error", err)
		}
	})
	if taken {
		l.generation.Add(1)
	}
	return taken
}
