package telemetry

import (
	"crypto/sha256"
	"time"

	"github.com/ripplenet/ripple/internal/model"
	"github.com/ripplenet/ripple/internal/ratecalc"
	"github.com/ripplenet/ripple/internal/seqtrack"
)

// edgeKey identifies an edge by its (src, dst, class) triple.
type edgeKey struct {
	src   model.NodeId
	dst   model.NodeId
	class model.TrafficClass
}

// DeriveEdgeID derives a stable 16-byte id from an edge's key. The hash is
// deterministic across restarts (spec.md §3): any collision-resistant,
// deterministic function of the key satisfies the invariant.
func DeriveEdgeID(src, dst model.NodeId, class model.TrafficClass) model.EdgeId {
	h := sha256.New()
	h.Write(src[:])
	h.Write(dst[:])
	h.Write([]byte{byte(class)})
	sum := h.Sum(nil)
	var id model.EdgeId
	copy(id[:], sum[:16])
	return id
}

// edge is the server-side entity for one directed per-class traffic
// relationship between two nodes.
type edge struct {
	id  model.EdgeId
	key edgeKey

	lastSeen time.Time
	packets  uint64
	bytes    uint64

	rateCalc *ratecalc.Calculator
	seqTrack seqtrack.Tracker

	ewmaAlpha float64

	prevPps float64
	prevBps float64

	latencyEwmaUs      float64
	jitterEwmaUs       float64
	latencyDeltaUs     float64
	lastLatencySampleUs float64
	hasLatencySample   bool

	windowPackets uint64
	windowMissing uint64
}

func newEdge(key edgeKey, now time.Time, window time.Duration, ewmaAlpha float64) *edge {
	return &edge{
		id:        DeriveEdgeID(key.src, key.dst, key.class),
		key:       key,
		lastSeen:  now,
		rateCalc:  ratecalc.New(window),
		ewmaAlpha: ewmaAlpha,
	}
}

// observeLatency feeds one latency sample (microseconds) into the edge's
// EWMA and jitter accounting, per spec.md §4.D step 8.
func (e *edge) observeLatency(latencyUs float64) {
	if !e.hasLatencySample {
		e.latencyEwmaUs = latencyUs
		e.jitterEwmaUs = 0
		e.hasLatencySample = true
	} else {
		jitterSample := latencyUs - e.lastLatencySampleUs
		if jitterSample < 0 {
			jitterSample = -jitterSample
		}
		e.latencyEwmaUs = e.ewmaAlpha*latencyUs + (1-e.ewmaAlpha)*e.latencyEwmaUs
		e.jitterEwmaUs = e.ewmaAlpha*jitterSample + (1-e.ewmaAlpha)*e.jitterEwmaUs
	}
	e.latencyDeltaUs = latencyUs - e.latencyEwmaUs
	e.lastLatencySampleUs = latencyUs
}
