package seqtrack

import (
	"testing"
	"time"
)

func TestFirstObserveReportsNone(t *testing.T) {
	var tr Tracker
	res := tr.Observe(1, time.Unix(0, 0))
	if res.Kind != None {
		t.Fatalf("first observe: got %v, want None", res.Kind)
	}
}

func TestConsecutiveNoGaps(t *testing.T) {
	var tr Tracker
	now := time.Unix(0, 0)
	for i := uint32(1); i <= 10; i++ {
		res := tr.Observe(i, now)
		if i == 1 {
			continue
		}
		if res.Kind != None {
			t.Fatalf("seq %d: got %v, want None", i, res.Kind)
		}
	}
	if tr.MissingCount() != 0 || tr.DuplicateCount != 0 || tr.OutOfOrderCount != 0 {
		t.Fatalf("expected zero anomalies, got missing=%d dup=%d ooo=%d", tr.MissingCount(), tr.DuplicateCount, tr.OutOfOrderCount)
	}
}

func TestGapThenRecovery(t *testing.T) {
	// spec.md S3: 1, 2, 5, 6 -> one Loss{count=2} covering [3,4].
	var tr Tracker
	now := time.Unix(0, 0)
	tr.Observe(1, now)
	tr.Observe(2, now)
	res := tr.Observe(5, now)
	if res.Kind != Loss || res.Count != 2 {
		t.Fatalf("got %v count=%d, want Loss count=2", res.Kind, res.Count)
	}
	res = tr.Observe(6, now)
	if res.Kind != None {
		t.Fatalf("seq 6: got %v, want None", res.Kind)
	}
	if tr.GapCount() != 1 {
		t.Fatalf("gap count = %d, want 1", tr.GapCount())
	}
	if tr.MissingCount() != 2 {
		t.Fatalf("missing count = %d, want 2", tr.MissingCount())
	}
	if tr.Missing[0].Start != 3 || tr.Missing[0].End != 4 {
		t.Fatalf("missing range = [%d,%d], want [3,4]", tr.Missing[0].Start, tr.Missing[0].End)
	}
}

func TestDuplicate(t *testing.T) {
	var tr Tracker
	now := time.Unix(0, 0)
	tr.Observe(1, now)
	res := tr.Observe(1, now)
	if res.Kind != Duplicate {
		t.Fatalf("got %v, want Duplicate", res.Kind)
	}
	if tr.DuplicateCount != 1 {
		t.Fatalf("duplicate count = %d, want 1", tr.DuplicateCount)
	}
}

func TestOutOfOrder(t *testing.T) {
	var tr Tracker
	now := time.Unix(0, 0)
	tr.Observe(1, now)
	tr.Observe(2, now)
	tr.Observe(5, now) // loss [3,4], lastSeq=5
	res := tr.Observe(3, now)
	if res.Kind != OutOfOrder {
		t.Fatalf("got %v, want OutOfOrder", res.Kind)
	}
	if tr.OutOfOrderCount != 1 {
		t.Fatalf("out-of-order count = %d, want 1", tr.OutOfOrderCount)
	}
	// spec.md §9 open question: the trailing 3 does not retroactively
	// shrink the recorded [3,4] gap.
	if tr.MissingCount() != 2 {
		t.Fatalf("missing count = %d, want 2 (gap not reconciled)", tr.MissingCount())
	}
}

func TestWrapAround(t *testing.T) {
	var tr Tracker
	now := time.Unix(0, 0)
	tr.Observe(^uint32(0), now) // max uint32
	res := tr.Observe(0, now)
	if res.Kind != None {
		t.Fatalf("wrap to 0: got %v, want None", res.Kind)
	}
	res = tr.Observe(1, now)
	if res.Kind != None {
		t.Fatalf("got %v, want None", res.Kind)
	}
}
