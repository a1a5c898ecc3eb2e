package engage

import (
	"time"

	"influencekit/internal/model"
)

const (
	// WindowSize is the platform's cap on messages per rolling Window.
	WindowSize = 1000
	// Window is the rolling period the cap applies to.
	Window = 24 * time.Hour
	// SpreadInterval spaces spread-scheduled sends evenly over one Window.
	SpreadInterval = Window / WindowSize
)

// DelayReason says which rule produced a Delay.
type DelayReason int

const (
	ReasonNone DelayReason = iota
	ReasonSpread
	ReasonRateLimit
)

func (r DelayReason) String() string {
	switch r {
	case ReasonSpread:
		return "spread"
	case ReasonRateLimit:
		return "rate_limit"
	default:
		return "none"
	}
}

// Delay is how long to wait before the next send, and why.
type Delay struct {
	Wait   time.Duration
	Reason DelayReason
}

// TimeUntilNextSend reconciles the spread interval with the rolling volume
// cap. Under spread scheduling the next send waits SpreadInterval after the
// newest send. Once the window holds WindowSize sends, the next send also
// waits until the oldest of them leaves the Window. The longer wait wins.
func (t *Tracker) TimeUntilNextSend(s model.Scheduling) Delay {
	now := t.clock.Now()

	var spread time.Duration
	if s == model.SchedulingSpread {
		if newest, ok := t.newest(); ok {
			if w := newest.Add(SpreadInterval).Sub(now); w > 0 {
				spread = w
			}
		}
	}

	var limit time.Duration
	if t.n == WindowSize {
		oldest, _ := t.oldest()
		if now.Sub(oldest) <= Window {
			limit = oldest.Add(Window).Sub(now)
			if limit < 0 {
				t.logger.Warn().Time("oldest", oldest).Msg("negative_rate_limit_wait")
				limit = 0
			}
		}
	}

	switch {
	case limit > spread:
		return Delay{Wait: limit, Reason: ReasonRateLimit}
	case spread > 0:
		return Delay{Wait: spread, Reason: ReasonSpread}
	default:
		return Delay{}
	}
}
