package timing

import "time"

// TickerLimiter uses time.Ticker for simple, consistent frame timing.
// Less accurate than AdaptiveLimiter but simpler and good enough for most cases.
type TickerLimiter struct {
	ticker *time.Ticker
	period time.Duration
}

func NewTickerLimiter() *TickerLimiter {
	period := FrameDuration()
	return &TickerLimiter{
		ticker: time.NewTicker(period),
		period: period,
	}
}

func (t *TickerLimiter) WaitForNextFrame() {
	if t.period == 0 {
		return
	}
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	if t.period > 0 {
		t.ticker.Reset(t.period)
	}
}

// SetSpeed changes the tick period. A stopped ticker never fires, so speed 0
// stops it and WaitForNextFrame returns immediately.
func (t *TickerLimiter) SetSpeed(speed float64) {
	t.period = ScaledFrameDuration(speed)
	if t.period == 0 {
		t.ticker.Stop()
		return
	}
	t.ticker.Reset(t.period)
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
