package timing

import (
	"log/slog"
	"time"
)

// AdaptiveLimiter uses precise timing with drift compensation.
// Combines sleep for efficiency with busy-waiting for accuracy.
type AdaptiveLimiter struct {
	targetFrameTime time.Duration
	nextFrameTime   time.Time
	frameCounter    int64
	windowStart     time.Time
}

func NewAdaptiveLimiter(fps float64) *AdaptiveLimiter {
	now := time.Now()
	return &AdaptiveLimiter{
		targetFrameTime: FrameDuration(fps),
		nextFrameTime:   now,
		windowStart:     now,
	}
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := time.Now()
	sleepTime := a.nextFrameTime.Sub(now)

	if sleepTime > 0 {
		if sleepTime >= 2*time.Millisecond {
			time.Sleep(sleepTime - time.Millisecond)
		}
		for time.Now().Before(a.nextFrameTime) {
			// spin the last millisecond
		}
	} else if sleepTime < -5*a.targetFrameTime {
		// too far behind to catch up, drop the backlog
		a.nextFrameTime = now
	}

	a.nextFrameTime = a.nextFrameTime.Add(a.targetFrameTime)
	a.frameCounter++

	if a.frameCounter%250 == 0 {
		elapsed := time.Since(a.windowStart)
		drift := time.Now().Sub(a.nextFrameTime.Add(-a.targetFrameTime))
		slog.Debug("Frame pacing",
			"fps", float64(250)*float64(time.Second)/float64(elapsed),
			"drift_ms", drift.Milliseconds())
		a.windowStart = time.Now()
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.nextFrameTime = time.Now()
	a.windowStart = a.nextFrameTime
	a.frameCounter = 0
}
