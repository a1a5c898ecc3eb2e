package xclient

import (
	"golang.org/x/time/rate"
)

const (
	defaultRPS   = 2.0
	defaultBurst = 10
)

// newLimiter paces outgoing requests. Non-positive values fall back to the defaults.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
