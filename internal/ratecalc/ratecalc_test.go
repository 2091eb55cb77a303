package ratecalc

import (
	"testing"
	"time"
)

func TestEmptyRateIsZero(t *testing.T) {
	c := New(5 * time.Second)
	pps, bps := c.Rate(time.Unix(0, 0))
	if pps != 0 || bps != 0 {
		t.Fatalf("got (%v,%v), want (0,0)", pps, bps)
	}
}

func TestSteadyRateConverges(t *testing.T) {
	// spec.md §8 property 7: steady r pps over >= W seconds should report
	// pps in [r*(W-1)/W, r].
	c := New(5 * time.Second)
	start := time.Unix(0, 0)
	const r = 100 // pps
	const durationSeconds = 8
	now := start
	for i := 0; i < durationSeconds*r; i++ {
		now = start.Add(time.Duration(i) * time.Second / r)
		c.Record(now, 1200)
	}
	pps, bps := c.Rate(now)
	lo := float64(r) * 4.0 / 5.0
	if pps < lo || pps > float64(r)*1.01 {
		t.Fatalf("pps=%v not in [%v,%v]", pps, lo, r)
	}
	if bps <= 0 {
		t.Fatalf("bps=%v, want >0", bps)
	}
}

func TestOldBucketsEvicted(t *testing.T) {
	c := New(2 * time.Second)
	start := time.Unix(0, 0)
	c.Record(start, 100)
	later := start.Add(10 * time.Second)
	c.Record(later, 100)
	pps, _ := c.Rate(later)
	// only the bucket at `later` should count
	if pps != 0.5 {
		t.Fatalf("pps=%v, want 0.5 (1 packet / 2s window)", pps)
	}
}

func TestBucketFoldingWithinOneSecond(t *testing.T) {
	c := New(5 * time.Second)
	start := time.Unix(0, 0)
	c.Record(start, 100)
	c.Record(start.Add(500*time.Millisecond), 100)
	if c.BucketCount() != 1 {
		t.Fatalf("bucket count = %d, want 1 (folded)", c.BucketCount())
	}
	c.Record(start.Add(1500*time.Millisecond), 100)
	if c.BucketCount() != 2 {
		t.Fatalf("bucket count = %d, want 2 (new anchor)", c.BucketCount())
	}
}
