package timing

import (
	"fmt"
	"time"
)

// Limiter paces the render loop.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after stalls.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless runs).
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// FrameDuration returns the duration of one frame at fps.
func FrameDuration(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

// New returns the limiter named kind: "adaptive", "ticker" or "none".
func New(kind string, fps float64) (Limiter, error) {
	if fps <= 0 && kind != "none" {
		return nil, fmt.Errorf("fps must be positive, got %v", fps)
	}
	switch kind {
	case "adaptive", "":
		return NewAdaptiveLimiter(fps), nil
	case "ticker":
		return NewTickerLimiter(fps), nil
	case "none":
		return NewNoOpLimiter(), nil
	}
	return nil, fmt.Errorf("unknown limiter %q", kind)
}
