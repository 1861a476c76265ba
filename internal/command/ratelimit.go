package command

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// deviceLimiter enforces a per-device execution rate so a burst of API
// calls cannot hammer a single network device.
type deviceLimiter struct {
	mu       sync.Mutex
	limiters map[int]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// newDeviceLimiter allows `limit` executions per `window` against each
// device, with bursts up to the full window allowance.
func newDeviceLimiter(limit int, window time.Duration) *deviceLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &deviceLimiter{
		limiters: make(map[int]*rate.Limiter),
		limit:    rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
	}
}

// Allow reports whether another execution against the device may
// proceed now.
func (d *deviceLimiter) Allow(deviceID int) bool {
	d.mu.Lock()
	lim, ok := d.limiters[deviceID]
	if !ok {
		lim = rate.NewLimiter(d.limit, d.burst)
		d.limiters[deviceID] = lim
	}
	d.mu.Unlock()
	return lim.Allow()
}
