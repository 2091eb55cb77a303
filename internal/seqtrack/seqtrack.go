// Package seqtrack implements per-class gap/duplicate/reorder detection
// against a wrapping 32-bit sequence counter (spec.md §4.A).
package seqtrack

import "time"

// Kind classifies the outcome of observing one sequence number.
type Kind int

const (
	// None means the sequence was exactly the expected next value.
	None Kind = iota
	// Loss means the sequence skipped ahead, leaving a gap behind it.
	Loss
	// Duplicate means the sequence repeated the last-seen value.
	Duplicate
	// OutOfOrder means the sequence arrived behind last-seen, but isn't a
	// duplicate of it.
	OutOfOrder
)

// Range is a closed missing-sequence span [Start, End], inclusive at both
// ends, with the time it was detected.
type Range struct {
	Start      uint32
	End        uint32
	DetectedAt time.Time
}

// Result reports the classification of one Observe call and, for Loss, the
// number of sequence numbers skipped.
type Result struct {
	Kind  Kind
	Count uint32
}

// Tracker holds the running state for one (node, class) or one edge's
// sequence stream. The zero value is ready to use.
type Tracker struct {
	lastSeq  uint32
	hasLast  bool
	Missing  []Range
	OutOfOrderCount uint64
	DuplicateCount  uint64
}

// Observe classifies seq against the tracker's running state and advances
// it. Comparisons use plain unsigned 32-bit value order, not mod-2^32
// distance — see spec.md §9's open question on wrap-around semantics.
func (t *Tracker) Observe(seq uint32, now time.Time) Result {
	if !t.hasLast {
		t.lastSeq = seq
		t.hasLast = true
		return Result{Kind: None}
	}

	expected := t.lastSeq + 1 // wraps naturally at 2^32

	switch {
	case seq == expected:
		t.lastSeq = seq
		return Result{Kind: None}
	case seq > expected:
		t.Missing = append(t.Missing, Range{Start: expected, End: seq - 1, DetectedAt: now})
		count := seq - expected
		t.lastSeq = seq
		return Result{Kind: Loss, Count: count}
	case seq == t.lastSeq:
		t.DuplicateCount++
		return Result{Kind: Duplicate}
	default: // seq < lastSeq, not equal to it
		t.OutOfOrderCount++
		return Result{Kind: OutOfOrder}
	}
}

// MissingCount is the total number of individual sequence numbers across all
// recorded missing ranges (not the number of ranges/gaps).
func (t *Tracker) MissingCount() uint64 {
	var total uint64
	for _, r := range t.Missing {
		total += uint64(r.End-r.Start) + 1
	}
	return total
}

// GapCount is the number of distinct missing ranges recorded.
func (t *Tracker) GapCount() uint64 {
	return uint64(len(t.Missing))
}
