package telemetry

import (
	"time"

	"github.com/ripplenet/ripple/internal/latency"
	"github.com/ripplenet/ripple/internal/model"
	"github.com/ripplenet/ripple/internal/ratecalc"
	"github.com/ripplenet/ripple/internal/seqtrack"
)

// node is the server-side entity for one traffic endpoint.
type node struct {
	id     model.NodeId
	desc   model.Desc
	domain model.NodeDomain
	addr   string

	firstSeen time.Time
	lastSeen  time.Time

	seqTrackers    [model.NumClasses]seqtrack.Tracker
	packetsByClass [model.NumClasses]uint64
	bytesByClass   [model.NumClasses]uint64
	routePackets   [model.NumRoutes]uint64
	routeBytes     [model.NumRoutes]uint64

	latencyStats  *latency.Accumulator
	rateCalcs     [model.NumClasses]*ratecalc.Calculator
}

func newNode(id model.NodeId, desc model.Desc, domain model.NodeDomain, addr string, now time.Time, window time.Duration) *node {
	n := &node{
		id:        id,
		desc:      desc,
		domain:    domain,
		addr:      addr,
		firstSeen: now,
		lastSeen:  now,
		latencyStats: latency.New(),
	}
	for i := range n.rateCalcs {
		n.rateCalcs[i] = ratecalc.New(window)
	}
	return n
}

func (n *node) totalPackets() uint64 {
	var t uint64
	for _, v := range n.packetsByClass {
		t += v
	}
	return t
}

func (n *node) totalBytes() uint64 {
	var t uint64
	for _, v := range n.bytesByClass {
		t += v
	}
	return t
}

func (n *node) totalRate(now time.Time) (pps, bps float64) {
	for _, rc := range n.rateCalcs {
		p, b := rc.Rate(now)
		pps += p
		bps += b
	}
	return
}
