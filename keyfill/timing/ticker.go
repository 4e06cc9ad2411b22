package timing

import "time"

// TickerLimiter uses time.Ticker for simple, consistent frame timing.
// Less accurate than AdaptiveLimiter but simpler and good enough for most cases.
type TickerLimiter struct {
	ticker   *time.Ticker
	interval time.Duration
}

func NewTickerLimiter(fps float64) *TickerLimiter {
	interval := FrameDuration(fps)
	return &TickerLimiter{
		ticker:   time.NewTicker(interval),
		interval: interval,
	}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.interval)
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
