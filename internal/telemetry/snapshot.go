package telemetry

import (
	"time"

	"github.com/ripplenet/ripple/internal/model"
)

func (e *Engine) globalStats() model.GlobalStats {
	g := model.GlobalStats{
		TotalPackets:  e.totalPackets,
		TotalBytes:    e.totalBytes,
		UniqueClients: uint64(len(e.nodes)),
	}
	g.PacketsByClass = e.packetsByClass
	g.BytesByClass = e.bytesByClass
	for i := range g.RouteStats {
		g.RouteStats[i] = model.RouteStats{Packets: e.routePackets[i], Bytes: e.routeBytes[i]}
	}
	return g
}

// ExportAnalytics renders the flat, per-client analytics snapshot
// (spec.md §4.D export_analytics, §6 AnalyticsSnapshot).
func (e *Engine) ExportAnalytics(now time.Time, epochNowUs uint64) model.AnalyticsSnapshot {
	snap := model.AnalyticsSnapshot{
		SnapshotTimestampUs: epochNowUs,
		ServerUptimeUs:      uint64(now.Sub(e.startedAt).Microseconds()),
		Global:              e.globalStats(),
	}
	for _, n := range e.nodes {
		cs := model.ClientStats{
			NodeID:            n.id,
			Desc:              n.desc,
			Addr:              n.addr,
			FirstSeenUs:       epochUsFor(n.firstSeen, now, epochNowUs),
			LastSeenUs:        epochUsFor(n.lastSeen, now, epochNowUs),
			SessionDurationUs: uint64(n.lastSeen.Sub(n.firstSeen).Microseconds()),
		}
		for c := 0; c < model.NumClasses; c++ {
			pps, bps := n.rateCalcs[c].Rate(now)
			cs.ClassStats[c] = model.ClassStats{
				Packets: n.packetsByClass[c],
				Bytes:   n.bytesByClass[c],
				Pps:     pps,
				Bps:     bps,
			}
		}
		lr := n.latencyStats.Stats()
		cs.Latency = model.LatencyStats{
			MinRttUs: lr.MinRttUs, MaxRttUs: lr.MaxRttUs,
			MeanRttUs: lr.MeanRttUs, MeanJitterUs: lr.MeanJitterUs, SampleCount: lr.Count,
		}
		var loss model.LossStats
		for c := 0; c < model.NumClasses; c++ {
			tr := &n.seqTrackers[c]
			loss.MissingSequences += tr.MissingCount()
			loss.TotalGaps += tr.GapCount()
			loss.OutOfOrder += tr.OutOfOrderCount
			loss.Duplicates += tr.DuplicateCount
		}
		cs.Loss = loss
		for i := range cs.RouteStats {
			cs.RouteStats[i] = model.RouteStats{Packets: n.routePackets[i], Bytes: n.routeBytes[i]}
		}
		snap.PerClient = append(snap.PerClient, cs)
	}
	return snap
}

// activeWindowMultiple is the multiple of the rate window used for the
// "active" liveness flag reported in topology snapshots (spec.md §4.D:
// "active iff now - last_seen < 3W seconds").
const activeWindowMultiple = 3

// ExportTopology renders the graph-first topology snapshot, advances
// snapshot_seq, computes per-edge deltas, and flushes the pending-removed
// sets (spec.md §4.D export_topology, §3 invariant 4).
func (e *Engine) ExportTopology(now time.Time, epochNowUs uint64) model.TopologySnapshot {
	e.snapshotSeq++

	snap := model.TopologySnapshot{
		SnapshotSeq:              e.snapshotSeq,
		SnapshotTimestampEpochUs: epochNowUs,
		SnapshotIntervalUs:       epochNowUs - e.lastSnapshotEpoch,
		Global:                   e.globalStats(),
	}
	e.lastSnapshotEpoch = epochNowUs

	activeThreshold := activeWindowMultiple * e.cfg.RateWindow

	for _, n := range e.nodes {
		pps, bps := n.totalRate(now)
		var loss model.LossStats
		for c := 0; c < model.NumClasses; c++ {
			tr := &n.seqTrackers[c]
			loss.MissingSequences += tr.MissingCount()
			loss.TotalGaps += tr.GapCount()
			loss.OutOfOrder += tr.OutOfOrderCount
			loss.Duplicates += tr.DuplicateCount
		}
		lr := n.latencyStats.Stats()
		snap.Nodes = append(snap.Nodes, model.TopologyNode{
			NodeID:       n.id,
			Desc:         n.desc,
			Domain:       n.domain,
			FirstSeenUs:  epochUsFor(n.firstSeen, now, epochNowUs),
			LastSeenUs:   epochUsFor(n.lastSeen, now, epochNowUs),
			Active:       now.Sub(n.lastSeen) < activeThreshold,
			TotalPackets: n.totalPackets(),
			TotalBytes:   n.totalBytes(),
			TotalPps:     pps,
			TotalBps:     bps,
			Latency: model.LatencyStats{
				MinRttUs: lr.MinRttUs, MaxRttUs: lr.MaxRttUs,
				MeanRttUs: lr.MeanRttUs, MeanJitterUs: lr.MeanJitterUs, SampleCount: lr.Count,
			},
			Loss: loss,
		})
	}

	for _, ed := range e.edges {
		pps, bps := ed.rateCalc.Rate(now)
		deltaPps := pps - ed.prevPps
		deltaBps := bps - ed.prevBps
		ed.prevPps = pps
		ed.prevBps = bps

		var lossRateWindow float64
		if ed.windowPackets > 0 {
			lossRateWindow = float64(ed.windowMissing) / float64(ed.windowPackets)
		}
		ed.windowPackets = 0
		ed.windowMissing = 0

		snap.Edges = append(snap.Edges, model.TopologyEdge{
			EdgeID:         ed.id,
			SrcNodeID:      ed.key.src,
			DstNodeID:      ed.key.dst,
			Class:          ed.key.class,
			Packets:        ed.packets,
			Bytes:          ed.bytes,
			Pps:            pps,
			Bps:            bps,
			DeltaPps:       deltaPps,
			DeltaBps:       deltaBps,
			LatencyEwmaUs:  ed.latencyEwmaUs,
			LatencyDeltaUs: ed.latencyDeltaUs,
			JitterEwmaUs:   ed.jitterEwmaUs,
			LossRateWindow: lossRateWindow,
			Active:         now.Sub(ed.lastSeen) < activeThreshold,
		})
	}

	snap.RemovedNodes = e.pendingRemovedNodes
	snap.RemovedEdges = e.pendingRemovedEdges
	e.pendingRemovedNodes = nil
	e.pendingRemovedEdges = nil
	e.removedEdgeSeen = make(map[model.EdgeId]struct{})

	return snap
}

// epochUsFor converts a monotonic timestamp t to an approximate wall-clock
// epoch-microsecond reading, anchored on the (now, epochNowUs) pair taken
// at render time. This is the one place the engine crosses its internal
// monotonic clock back to the wall-clock epoch it reports on the wire
// (spec.md §9 "Timekeeping duality").
func epochUsFor(t, now time.Time, epochNowUs uint64) uint64 {
	deltaUs := now.Sub(t).Microseconds()
	if uint64(deltaUs) > epochNowUs {
		return 0
	}
	return epochNowUs - uint64(deltaUs)
}
