// Package handoff moves frames one at a time from a producer goroutine to the render goroutine.
//
// A Handoff owns a single back buffer. The producer acquires it for writing, fills it and publishes it;
// the consumer copies a published frame out without ever blocking. Frames are never queued: while a
// frame is published but not yet consumed, the next acquire blocks.
package handoff

import (
	"errors"
	"fmt"
	"sync"

	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/video"
)

var (
	// ErrClosed is returned to producers blocked on, or arriving at, a closed Handoff.
	ErrClosed = errors.New("handoff closed")
	// ErrNotAcquired is returned by Publish when the caller does not hold write access.
	ErrNotAcquired = errors.New("publish without acquire")
)

// Policy selects how a producer waits for the consumer.
type Policy int

const (
	// PingPong returns from Publish as soon as the frame is handed over; the producer only
	// waits at its next acquire.
	PingPong Policy = iota
	// Rendezvous blocks inside Publish until the consumer has copied the frame.
	Rendezvous
)

func (p Policy) String() string {
	switch p {
	case PingPong:
		return "pingpong"
	case Rendezvous:
		return "rendezvous"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy maps a policy name to its value.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "pingpong", "ping-pong":
		return PingPong, nil
	case "rendezvous":
		return Rendezvous, nil
	}
	return PingPong, fmt.Errorf("unknown handoff policy %q", s)
}

type state uint8

const (
	idle state = iota
	writing
	ready
	reading
)

// WritableBuffer grants exclusive write access to a handoff's back buffer until Publish.
type WritableBuffer struct {
	Pixels []byte
	Pitch  int
	Width  int
	Height int
}

// Stats counts frames through a Handoff.
type Stats struct {
	Published uint64
	Consumed  uint64
}

type Handoff struct {
	mu     sync.Mutex
	cond   *sync.Cond
	policy Policy
	state  state
	closed bool

	width, height int
	back          []byte
	pitch         int

	// caller memory handed over by a rendezvous Deliver, nil otherwise
	pending      []byte
	pendingPitch int

	published uint64
	consumed  uint64
}

// New creates a Handoff for frames of width x height BGRA pixels.
func New(policy Policy, width, height int) *Handoff {
	pitch := width * display.BytesPerPixel
	h := &Handoff{
		policy: policy,
		width:  width,
		height: height,
		back:   make([]byte, pitch*height),
		pitch:  pitch,
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

func (h *Handoff) Policy() Policy { return h.policy }

// AcquireForWrite blocks until no write is in progress and no published frame is waiting,
// then grants write access to the back buffer.
func (h *Handoff) AcquireForWrite() (*WritableBuffer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.waitIdle(); err != nil {
		return nil, err
	}
	h.state = writing
	return &WritableBuffer{Pixels: h.back, Pitch: h.pitch, Width: h.width, Height: h.height}, nil
}

// Publish hands the written back buffer to the consumer. Under Rendezvous it returns once the
// consumer has copied it.
func (h *Handoff) Publish() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if h.state != writing {
		return ErrNotAcquired
	}
	return h.publishLocked()
}

// Deliver copies one caller-owned frame into the handoff. Under Rendezvous the consumer reads the
// caller's memory directly and Deliver returns only after that read, so frame may be reused on return.
func (h *Handoff) Deliver(frame []byte, pitch int) error {
	rowBytes := h.width * display.BytesPerPixel
	if pitch < rowBytes || len(frame) < pitch*(h.height-1)+rowBytes {
		return fmt.Errorf("%w: %d bytes at pitch %d for %dx%d", video.ErrFrameSize, len(frame), pitch, h.width, h.height)
	}

	if h.policy == PingPong {
		buf, err := h.AcquireForWrite()
		if err != nil {
			return err
		}
		if pitch == buf.Pitch {
			copy(buf.Pixels, frame)
		} else {
			for y := 0; y < h.height; y++ {
				copy(buf.Pixels[y*buf.Pitch:y*buf.Pitch+rowBytes], frame[y*pitch:])
			}
		}
		return h.Publish()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.waitIdle(); err != nil {
		return err
	}
	h.pending = frame
	h.pendingPitch = pitch
	return h.publishLocked()
}

// waitIdle requires h.mu held.
func (h *Handoff) waitIdle() error {
	for !h.closed && h.state != idle {
		h.cond.Wait()
	}
	if h.closed {
		return ErrClosed
	}
	return nil
}

// publishLocked requires h.mu held and the caller owning the buffer.
func (h *Handoff) publishLocked() error {
	h.state = ready
	h.published++
	seq := h.published
	h.cond.Broadcast()

	if h.policy != Rendezvous {
		return nil
	}
	// a read already under way finishes even after Close
	for h.consumed < seq && (!h.closed || h.state == reading) {
		h.cond.Wait()
	}
	if h.consumed < seq {
		h.pending = nil
		h.state = idle
		return ErrClosed
	}
	return nil
}

// TakeReady copies out a published frame if there is one. It never blocks: when nothing is ready,
// including while a write is in progress, it returns false without calling copyOut.
func (h *Handoff) TakeReady(copyOut func(pixels []byte, pitch int)) bool {
	h.mu.Lock()
	if h.state != ready {
		h.mu.Unlock()
		return false
	}
	h.state = reading
	pix, pitch := h.back, h.pitch
	if h.pending != nil {
		pix, pitch = h.pending, h.pendingPitch
	}
	h.mu.Unlock()

	copyOut(pix, pitch)

	h.mu.Lock()
	h.pending = nil
	h.state = idle
	h.consumed++
	h.cond.Broadcast()
	h.mu.Unlock()
	return true
}

// Close wakes every blocked producer with ErrClosed. Later calls on the producer side fail the same way.
func (h *Handoff) Close() {
	h.mu.Lock()
	h.closed = true
	h.cond.Broadcast()
	h.mu.Unlock()
}

func (h *Handoff) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Published: h.published, Consumed: h.consumed}
}
