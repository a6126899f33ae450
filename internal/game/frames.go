package game

import "time"

// FrameSource delivers frame ticks until stopped.
type FrameSource interface {
	C() <-chan time.Time
	Stop()
}

// FrameSourceFunc creates a fresh FrameSource each time a round starts animating.
type FrameSourceFunc func() FrameSource

type tickerSource struct {
	ticker *time.Ticker
}

func (t *tickerSource) C() <-chan time.Time { return t.ticker.C }
func (t *tickerSource) Stop()               { t.ticker.Stop() }

// TickerFrames returns frame sources backed by time.Ticker.
// 16ms approximates a 60Hz display refresh.
func TickerFrames(interval time.Duration) FrameSourceFunc {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return func() FrameSource {
		return &tickerSource{ticker: time.NewTicker(interval)}
	}
}
