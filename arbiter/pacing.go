package arbiter

import "time"

const (
	DefaultSettle        = 100 * time.Millisecond
	DefaultFastThreshold = 100 * time.Millisecond
)

// Pacing holds the settle delay that follows every resolved move. During
// fast autonomous play the delay is dropped, otherwise the queue would grow
// faster than it drains.
type Pacing struct {
	Settle        time.Duration
	FastThreshold time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{Settle: DefaultSettle, FastThreshold: DefaultFastThreshold}
}

func (p Pacing) Delay(autoplay bool, interval time.Duration) time.Duration {
	if autoplay && interval < p.FastThreshold {
		return 0
	}
	return p.Settle
}
