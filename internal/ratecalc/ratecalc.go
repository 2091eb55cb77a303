// Package ratecalc implements the sliding-window pps/bps rate calculator
// (spec.md §4.B): a deque of one-second buckets, each spanning at most one
// second since its own anchor timestamp (not calendar-aligned).
package ratecalc

import "time"

type bucket struct {
	timestamp time.Time
	packets   uint64
	bytes     uint64
}

// Calculator accumulates a W-second sliding window of packet/byte counts.
type Calculator struct {
	window  time.Duration
	buckets []bucket
}

// New returns a Calculator with the given window, e.g. 5*time.Second.
func New(window time.Duration) *Calculator {
	return &Calculator{window: window}
}

// Record folds n bytes (representing one packet) into the window at now.
func (c *Calculator) Record(now time.Time, bytes uint64) {
	c.evict(now)

	if len(c.buckets) > 0 {
		tail := &c.buckets[len(c.buckets)-1]
		if now.Sub(tail.timestamp) < time.Second {
			tail.packets++
			tail.bytes += bytes
			return
		}
	}
	c.buckets = append(c.buckets, bucket{timestamp: now, packets: 1, bytes: bytes})
}

// evict drops buckets whose anchor is at least window-seconds behind now.
func (c *Calculator) evict(now time.Time) {
	i := 0
	for i < len(c.buckets) && now.Sub(c.buckets[i].timestamp) >= c.window {
		i++
	}
	if i > 0 {
		c.buckets = c.buckets[i:]
	}
}

// Rate returns (pps, bps) summed across every bucket within the window of
// now, divided by the window length in floating-point seconds.
func (c *Calculator) Rate(now time.Time) (pps, bps float64) {
	var packets, bytes uint64
	for _, b := range c.buckets {
		if now.Sub(b.timestamp) < c.window {
			packets += b.packets
			bytes += b.bytes
		}
	}
	seconds := c.window.Seconds()
	if seconds <= 0 {
		return 0, 0
	}
	return float64(packets) / seconds, float64(bytes) / seconds
}

// BucketCount exposes the current number of live buckets; bounded to W.
func (c *Calculator) BucketCount() int {
	return len(c.buckets)
}
