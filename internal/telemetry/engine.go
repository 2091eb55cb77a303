// Package telemetry implements the server's telemetry engine (spec.md
// §4.D): the stateful ingest path that classifies inbound data packets onto
// per-class edges, maintains node/edge registries, and renders analytics
// and topology snapshots on demand.
package telemetry

import (
	"time"

	"github.com/ripplenet/ripple/internal/model"
	"github.com/ripplenet/ripple/internal/seqtrack"
)

// Sink receives diagnostic side-effects from the ingest path without the
// engine depending on how they're logged (see internal/diagnostics.Sink,
// which implements this).
type Sink interface {
	Loss(scope, key, class string, count uint32)
	CapacityExceeded(nodeID string)
}

type nopSink struct{}

func (nopSink) Loss(string, string, string, uint32) {}
func (nopSink) CapacityExceeded(string)              {}

// Config parameterizes the engine's capacity and timing behavior.
type Config struct {
	MaxNodes   int
	RateWindow time.Duration // W in spec.md §4.B; server default 5s
	EwmaAlpha  float64       // smoothing factor for latency/jitter EWMAs, spec.md §4.D step 8
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{MaxNodes: 10000, RateWindow: 5 * time.Second, EwmaAlpha: 0.2}
}

// Engine owns the node and edge registries and is the single-threaded
// entry point for every ingest and snapshot operation (spec.md §5: no
// locks, exactly one logical owner).
type Engine struct {
	cfg  Config
	sink Sink

	nodes map[model.NodeId]*node
	edges map[edgeKey]*edge

	totalPackets   uint64
	totalBytes     uint64
	packetsByClass [model.NumClasses]uint64
	bytesByClass   [model.NumClasses]uint64
	routePackets   [model.NumRoutes]uint64
	routeBytes     [model.NumRoutes]uint64

	snapshotSeq       uint64
	lastSnapshotEpoch uint64 // microseconds since Unix epoch, wall clock

	pendingRemovedNodes []model.NodeId
	pendingRemovedEdges []model.EdgeId
	removedEdgeSeen     map[model.EdgeId]struct{}

	startedAt time.Time // monotonic, for uptime
}

// New returns an Engine ready to ingest. startedAt should be a monotonic
// clock reading (time.Now()); epochNow should be the corresponding
// wall-clock microsecond reading, used to seed the first snapshot interval.
func New(cfg Config, sink Sink, startedAt time.Time, epochNowUs uint64) *Engine {
	if sink == nil {
		sink = nopSink{}
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = DefaultConfig().MaxNodes
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = DefaultConfig().RateWindow
	}
	if cfg.EwmaAlpha <= 0 {
		cfg.EwmaAlpha = DefaultConfig().EwmaAlpha
	}
	return &Engine{
		cfg:             cfg,
		sink:            sink,
		nodes:           make(map[model.NodeId]*node),
		edges:           make(map[edgeKey]*edge),
		lastSnapshotEpoch: epochNowUs,
		removedEdgeSeen: make(map[model.EdgeId]struct{}),
		startedAt:       startedAt,
	}
}

// ensureNode creates the node if absent (subject to MaxNodes) or touches
// last_seen/desc/addr if present. Returns nil if creation was rejected by
// capacity (spec.md §3 invariant 5, §4.D on_register step 1).
func (e *Engine) ensureNode(id model.NodeId, desc model.Desc, domain model.NodeDomain, addr string, now time.Time) *node {
	if n, ok := e.nodes[id]; ok {
		n.lastSeen = now
		if desc != (model.Desc{}) {
			n.desc = desc
		}
		if addr != "" {
			n.addr = addr
		}
		return n
	}
	if len(e.nodes) >= e.cfg.MaxNodes {
		e.sink.CapacityExceeded(id.String())
		return nil
	}
	n := newNode(id, desc, domain, addr, now, e.cfg.RateWindow)
	e.nodes[id] = n
	return n
}

// touchNode updates last_seen only, for a node already known to exist.
func (e *Engine) touchNode(id model.NodeId, now time.Time) {
	if n, ok := e.nodes[id]; ok {
		n.lastSeen = now
	}
}

// OnRegister handles a RegisterNode wire record (spec.md §4.D).
func (e *Engine) OnRegister(pkt model.RegisterNode, addr string, now time.Time) {
	e.ensureNode(pkt.NodeID, pkt.Desc, pkt.Domain, addr, now)
}

// OnUnregister handles an UnregisterNode wire record by cascading removal.
func (e *Engine) OnUnregister(pkt model.UnregisterNode, now time.Time) {
	e.removeNodeCascade(pkt.NodeID)
}

// removeNodeCascade removes a node and every edge touching it, deduplicating
// removed-edge ids (spec.md §4.D "Cascade removal").
func (e *Engine) removeNodeCascade(id model.NodeId) {
	if _, ok := e.nodes[id]; !ok {
		return
	}
	delete(e.nodes, id)
	e.pendingRemovedNodes = append(e.pendingRemovedNodes, id)

	for k, ed := range e.edges {
		if k.src == id || k.dst == id {
			delete(e.edges, k)
			e.markEdgeRemoved(ed.id)
		}
	}
}

func (e *Engine) markEdgeRemoved(id model.EdgeId) {
	if _, seen := e.removedEdgeSeen[id]; seen {
		return
	}
	e.removedEdgeSeen[id] = struct{}{}
	e.pendingRemovedEdges = append(e.pendingRemovedEdges, id)
}

// OnData handles a Data wire record end to end and returns the Ack to send
// back (spec.md §4.D on_data).
func (e *Engine) OnData(pkt model.Data, addr string, now time.Time, serverEpochUs uint64) model.Ack {
	// 1. Ensure source node, refreshing desc. Domain is only consulted on
	// first creation (InferDomain); an already-known node keeps the domain
	// it was created or registered with, regardless of what a later Data
	// packet's src_domain field claims.
	src := e.ensureNode(pkt.SrcNodeID, pkt.Desc, InferDomain(pkt.SrcNodeID), addr, now)

	// 2. Ensure destination node; placeholder desc only if newly created.
	_, dstExisted := e.nodes[pkt.DstNodeID]
	dst := e.ensureNode(pkt.DstNodeID, model.Desc{}, InferDomain(pkt.DstNodeID), "", now)
	if dst != nil && !dstExisted {
		dst.desc = model.NewDesc("peer-" + dst.domain.String())
	}

	if src == nil || dst == nil {
		// Source or destination creation rejected by capacity; ingest is a
		// no-op beyond the Ack (spec.md §4.D failure semantics: fully
		// applied or entirely dropped — here the packet's state effects
		// are dropped, but a sender still gets an Ack so it doesn't
		// stall). Checking dst here too matters: the source ensureNode
		// call above can push the node map to MaxNodes, so the
		// destination's own ensureNode call can come back nil even though
		// src didn't.
		return model.Ack{OriginalSeq: pkt.GlobalSeq, ServerTimestampUs: serverEpochUs}
	}

	// 3. Route index.
	routeIdx := model.RouteIndex(src.domain, dst.domain)

	// 4. Global aggregates.
	e.totalPackets++
	e.totalBytes += uint64(pkt.DeclaredBytes)
	if pkt.Class.Valid() {
		e.packetsByClass[pkt.Class]++
		e.bytesByClass[pkt.Class] += uint64(pkt.DeclaredBytes)
	}
	e.routePackets[routeIdx]++
	e.routeBytes[routeIdx] += uint64(pkt.DeclaredBytes)

	// 5. Source node counters, sequence tracker, rate calculator.
	if pkt.Class.Valid() {
		src.packetsByClass[pkt.Class]++
		src.bytesByClass[pkt.Class] += uint64(pkt.DeclaredBytes)
		src.routePackets[routeIdx]++
		src.routeBytes[routeIdx] += uint64(pkt.DeclaredBytes)

		res := src.seqTrackers[pkt.Class].Observe(pkt.ClassSeq, now)
		if res.Kind == seqtrack.Loss {
			e.sink.Loss("node", src.id.String(), pkt.Class.String(), res.Count)
		}
		src.rateCalcs[pkt.Class].Record(now, uint64(pkt.DeclaredBytes))
	}

	// 6. Destination last_seen only (already touched by ensureNode above).

	// 7. Resolve or create edge.
	key := edgeKey{src: pkt.SrcNodeID, dst: pkt.DstNodeID, class: pkt.Class}
	ed, ok := e.edges[key]
	if !ok {
		ed = newEdge(key, now, e.cfg.RateWindow, e.cfg.EwmaAlpha)
		e.edges[key] = ed
	}
	ed.lastSeen = now
	ed.packets++
	ed.bytes += uint64(pkt.DeclaredBytes)
	ed.windowPackets++
	ed.rateCalc.Record(now, uint64(pkt.DeclaredBytes))

	edgeRes := ed.seqTrack.Observe(pkt.ClassSeq, now)
	if edgeRes.Kind == seqtrack.Loss {
		ed.windowMissing += uint64(edgeRes.Count)
		e.sink.Loss("edge", ed.id.String(), pkt.Class.String(), edgeRes.Count)
	}

	// 8. Latency sample, only if sender is not ahead of server wall clock.
	if serverEpochUs >= pkt.TimestampUs {
		latencyUs := float64(serverEpochUs - pkt.TimestampUs)
		src.latencyStats.Add(uint64(latencyUs))
		ed.observeLatency(latencyUs)
	}

	// 9. Ack. server_processing_us is always 0 (spec.md §9 open question).
	return model.Ack{OriginalSeq: pkt.GlobalSeq, ServerTimestampUs: serverEpochUs}
}

// CleanupStale removes nodes (cascading their edges) idle for at least
// nodeTTL, then removes any remaining edges idle for at least edgeTTL
// (spec.md §4.D cleanup_stale).
func (e *Engine) CleanupStale(nodeTTL, edgeTTL time.Duration, now time.Time) {
	var staleNodes []model.NodeId
	for id, n := range e.nodes {
		if now.Sub(n.lastSeen) >= nodeTTL {
			staleNodes = append(staleNodes, id)
		}
	}
	for _, id := range staleNodes {
		e.removeNodeCascade(id)
	}

	var staleEdges []edgeKey
	for k, ed := range e.edges {
		if now.Sub(ed.lastSeen) >= edgeTTL {
			staleEdges = append(staleEdges, k)
		}
	}
	for _, k := range staleEdges {
		ed := e.edges[k]
		delete(e.edges, k)
		e.markEdgeRemoved(ed.id)
	}
}

// NodeCount returns the number of live nodes (testing/observability helper).
func (e *Engine) NodeCount() int { return len(e.nodes) }

// EdgeCount returns the number of live edges (testing/observability helper).
func (e *Engine) EdgeCount() int { return len(e.edges) }
