package telemetry

import (
	"testing"
	"time"

	"github.com/ripplenet/ripple/internal/model"
)

func epochUs(t time.Time) uint64 {
	return uint64(t.UnixMicro())
}

func newTestEngine(now time.Time) *Engine {
	return New(Config{MaxNodes: 100, RateWindow: 5 * time.Second}, nil, now, epochUs(now))
}

func TestS1BasicAck(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(now)

	a := model.NewNodeId("NODE-ALPHA-00001")
	b := model.NewNodeId("NODE-BRAVO-00002")
	e.OnRegister(model.RegisterNode{NodeID: a, Desc: model.NewDesc("alpha"), Domain: model.DomainInternal, TimestampUs: epochUs(now)}, "10.0.0.1:1", now)
	e.OnRegister(model.RegisterNode{NodeID: b, Desc: model.NewDesc("bravo"), Domain: model.DomainExternal, TimestampUs: epochUs(now)}, "10.0.0.2:1", now)

	ack := e.OnData(model.Data{
		SrcNodeID: a, DstNodeID: b, GlobalSeq: 1, ClassSeq: 1, Class: model.ClassApi,
		TimestampUs: epochUs(now), DeclaredBytes: 1200, Desc: model.NewDesc("alpha"),
		SrcDomain: model.DomainInternal, DstDomain: model.DomainExternal,
	}, "10.0.0.1:1", now, epochUs(now))

	if ack.OriginalSeq != 1 {
		t.Fatalf("ack.OriginalSeq = %d, want 1", ack.OriginalSeq)
	}

	snap := e.ExportTopology(now, epochUs(now))
	foundExternal := false
	for _, n := range snap.Nodes {
		if n.Domain == model.DomainExternal {
			foundExternal = true
		}
	}
	if !foundExternal {
		t.Fatalf("expected >=1 external node in topology")
	}
	foundEdge := false
	for _, ed := range snap.Edges {
		if ed.SrcNodeID == a && ed.Class == model.ClassApi {
			foundEdge = true
			if ed.Packets != 1 || ed.Bytes != 1200 {
				t.Fatalf("edge packets/bytes = %d/%d, want 1/1200", ed.Packets, ed.Bytes)
			}
		}
	}
	if !foundEdge {
		t.Fatalf("expected edge (A,B,Api)")
	}
}

func TestS2MixedClassesPerEdge(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(now)
	a := model.NewNodeId("A")
	b := model.NewNodeId("B")
	e.OnRegister(model.RegisterNode{NodeID: a, Domain: model.DomainInternal}, "", now)
	e.OnRegister(model.RegisterNode{NodeID: b, Domain: model.DomainExternal}, "", now)

	classes := []model.TrafficClass{model.ClassApi, model.ClassHeavyCompute, model.ClassBackground, model.ClassHealthCheck}
	for i, c := range classes {
		e.OnData(model.Data{SrcNodeID: a, DstNodeID: b, GlobalSeq: uint32(i + 1), ClassSeq: 1, Class: c, DeclaredBytes: 1200, TimestampUs: epochUs(now)}, "", now, epochUs(now))
	}

	snap := e.ExportTopology(now, epochUs(now))
	count := 0
	for _, ed := range snap.Edges {
		if ed.SrcNodeID == a && ed.DstNodeID == b {
			count++
			if ed.Packets != 1 || ed.Bytes != 1200 {
				t.Fatalf("edge %v packets/bytes = %d/%d, want 1/1200", ed.Class, ed.Packets, ed.Bytes)
			}
		}
	}
	if count != 4 {
		t.Fatalf("edge count = %d, want 4", count)
	}
}

func TestS3GapThenRecovery(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(now)
	a := model.NewNodeId("A")
	b := model.NewNodeId("B")
	e.OnRegister(model.RegisterNode{NodeID: a, Domain: model.DomainInternal}, "", now)
	e.OnRegister(model.RegisterNode{NodeID: b, Domain: model.DomainExternal}, "", now)

	for _, seq := range []uint32{1, 2, 5, 6} {
		e.OnData(model.Data{SrcNodeID: a, DstNodeID: b, GlobalSeq: seq, ClassSeq: seq, Class: model.ClassApi, DeclaredBytes: 100, TimestampUs: epochUs(now)}, "", now, epochUs(now))
	}

	snap := e.ExportTopology(now, epochUs(now))
	var n model.TopologyNode
	for _, nn := range snap.Nodes {
		if nn.NodeID == a {
			n = nn
		}
	}
	if n.Loss.MissingSequences != 2 || n.Loss.TotalGaps != 1 || n.Loss.OutOfOrder != 0 || n.Loss.Duplicates != 0 {
		t.Fatalf("loss stats = %+v, want missing=2 gaps=1 ooo=0 dup=0", n.Loss)
	}
}

func TestS4RemovalAndDelta(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(now)
	a := model.NewNodeId("A")
	b := model.NewNodeId("B")
	e.OnRegister(model.RegisterNode{NodeID: a, Domain: model.DomainInternal}, "", now)
	e.OnRegister(model.RegisterNode{NodeID: b, Domain: model.DomainExternal}, "", now)
	e.OnData(model.Data{SrcNodeID: a, DstNodeID: b, GlobalSeq: 1, ClassSeq: 1, Class: model.ClassApi, DeclaredBytes: 100, TimestampUs: epochUs(now)}, "", now, epochUs(now))

	snap1 := e.ExportTopology(now, epochUs(now))
	if len(snap1.Nodes) != 2 || len(snap1.Edges) != 1 {
		t.Fatalf("snap1: nodes=%d edges=%d, want 2/1", len(snap1.Nodes), len(snap1.Edges))
	}
	if len(snap1.RemovedNodes) != 0 || len(snap1.RemovedEdges) != 0 {
		t.Fatalf("snap1: expected empty removed sets")
	}

	e.OnUnregister(model.UnregisterNode{NodeID: a}, now)

	snap2 := e.ExportTopology(now, epochUs(now))
	if !containsNodeID(snap2.RemovedNodes, a) {
		t.Fatalf("snap2: removed_nodes does not contain A")
	}
	if len(snap2.RemovedEdges) != 1 {
		t.Fatalf("snap2: removed_edges = %d, want 1", len(snap2.RemovedEdges))
	}
	for _, ed := range snap2.Edges {
		if ed.SrcNodeID == a {
			t.Fatalf("snap2: edge with src=A should not remain")
		}
	}

	snap3 := e.ExportTopology(now, epochUs(now))
	if len(snap3.RemovedNodes) != 0 || len(snap3.RemovedEdges) != 0 {
		t.Fatalf("snap3: expected empty removed sets, got nodes=%d edges=%d", len(snap3.RemovedNodes), len(snap3.RemovedEdges))
	}
}

func containsNodeID(ids []model.NodeId, want model.NodeId) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

func TestS5StaleExpiry(t *testing.T) {
	start := time.Unix(1000, 0)
	e := newTestEngine(start)
	a := model.NewNodeId("A")
	b := model.NewNodeId("B")
	e.OnRegister(model.RegisterNode{NodeID: a, Domain: model.DomainInternal}, "", start)
	e.OnRegister(model.RegisterNode{NodeID: b, Domain: model.DomainExternal}, "", start)
	e.OnData(model.Data{SrcNodeID: a, DstNodeID: b, GlobalSeq: 1, ClassSeq: 1, Class: model.ClassApi, DeclaredBytes: 100, TimestampUs: epochUs(start)}, "", start, epochUs(start))

	later := start.Add(2 * time.Second)
	e.CleanupStale(1*time.Second, 1*time.Second, later)
	snap := e.ExportTopology(later, epochUs(later))
	if len(snap.Nodes) != 0 || len(snap.Edges) != 0 {
		t.Fatalf("expected zero nodes/edges after stale expiry, got %d/%d", len(snap.Nodes), len(snap.Edges))
	}
	if !containsNodeID(snap.RemovedNodes, a) || !containsNodeID(snap.RemovedNodes, b) {
		t.Fatalf("removed_nodes = %v, want {A,B}", snap.RemovedNodes)
	}
	if len(snap.RemovedEdges) != 1 {
		t.Fatalf("removed_edges = %d, want 1", len(snap.RemovedEdges))
	}
}

func TestS6DeltaRatesAcrossSnapshots(t *testing.T) {
	start := time.Unix(1000, 0)
	e := newTestEngine(start)
	a := model.NewNodeId("A")
	b := model.NewNodeId("B")
	e.OnRegister(model.RegisterNode{NodeID: a, Domain: model.DomainInternal}, "", start)
	e.OnRegister(model.RegisterNode{NodeID: b, Domain: model.DomainExternal}, "", start)

	t10 := start.Add(10 * time.Millisecond)
	e.OnData(model.Data{SrcNodeID: a, DstNodeID: b, GlobalSeq: 1, ClassSeq: 1, Class: model.ClassApi, DeclaredBytes: 100, TimestampUs: epochUs(start)}, "", t10, epochUs(t10))

	t100 := start.Add(100 * time.Millisecond)
	snap := e.ExportTopology(t100, epochUs(t100))
	var ed1 model.TopologyEdge
	for _, e2 := range snap.Edges {
		if e2.SrcNodeID == a {
			ed1 = e2
		}
	}
	if ed1.Pps <= 0 {
		t.Fatalf("pps = %v, want >0", ed1.Pps)
	}
	if ed1.LatencyEwmaUs <= 0 {
		t.Fatalf("latency ewma = %v, want >0", ed1.LatencyEwmaUs)
	}

	t900 := start.Add(900 * time.Millisecond)
	e.OnData(model.Data{SrcNodeID: a, DstNodeID: b, GlobalSeq: 2, ClassSeq: 2, Class: model.ClassApi, DeclaredBytes: 100, TimestampUs: epochUs(start)}, "", t900, epochUs(t900))

	t1000 := start.Add(1000 * time.Millisecond)
	snap2 := e.ExportTopology(t1000, epochUs(t1000))
	var ed2 model.TopologyEdge
	for _, e2 := range snap2.Edges {
		if e2.SrcNodeID == a {
			ed2 = e2
		}
	}
	if ed2.DeltaPps == 0 {
		t.Fatalf("delta pps = 0, want nonzero")
	}
	if ed2.JitterEwmaUs <= 0 {
		t.Fatalf("jitter ewma = %v, want >0", ed2.JitterEwmaUs)
	}
	if ed2.LatencyDeltaUs == 0 {
		t.Fatalf("latency delta = 0, want nonzero")
	}
}

func TestCapacityExceededDropsNewNode(t *testing.T) {
	now := time.Unix(0, 0)
	e := New(Config{MaxNodes: 1, RateWindow: 5 * time.Second}, nil, now, epochUs(now))
	a := model.NewNodeId("A")
	b := model.NewNodeId("B")
	e.OnRegister(model.RegisterNode{NodeID: a, Domain: model.DomainInternal}, "", now)
	e.OnRegister(model.RegisterNode{NodeID: b, Domain: model.DomainInternal}, "", now) // should be dropped
	if e.NodeCount() != 1 {
		t.Fatalf("node count = %d, want 1 (capacity enforced)", e.NodeCount())
	}
}

func TestOnDataDoesNotPanicWhenDestinationCapacityExceeded(t *testing.T) {
	now := time.Unix(0, 0)
	e := New(Config{MaxNodes: 1, RateWindow: 5 * time.Second}, nil, now, epochUs(now))
	a := model.NewNodeId("NODE-ALPHA-00001")
	b := model.NewNodeId("NODE-BRAVO-00002")

	// Neither node is registered yet; the source's own implicit creation
	// fills the single slot of capacity, so the destination's ensureNode
	// call must come back nil.
	ack := e.OnData(model.Data{
		SrcNodeID: a, DstNodeID: b, GlobalSeq: 1, ClassSeq: 1, Class: model.ClassApi,
		TimestampUs: epochUs(now), DeclaredBytes: 1200,
	}, "10.0.0.1:1", now, epochUs(now))

	if ack.OriginalSeq != 1 {
		t.Fatalf("ack.OriginalSeq = %d, want 1", ack.OriginalSeq)
	}
	if e.NodeCount() != 1 {
		t.Fatalf("node count = %d, want 1 (destination creation rejected)", e.NodeCount())
	}
	if e.EdgeCount() != 0 {
		t.Fatalf("edge count = %d, want 0 (packet dropped entirely)", e.EdgeCount())
	}
}

func TestSnapshotSeqMonotonic(t *testing.T) {
	now := time.Unix(0, 0)
	e := newTestEngine(now)
	s1 := e.ExportTopology(now, epochUs(now))
	s2 := e.ExportTopology(now, epochUs(now))
	if s2.SnapshotSeq <= s1.SnapshotSeq {
		t.Fatalf("snapshot_seq not increasing: %d -> %d", s1.SnapshotSeq, s2.SnapshotSeq)
	}
}

func TestDomainInferenceForImplicitNodes(t *testing.T) {
	now := time.Unix(0, 0)
	e := newTestEngine(now)
	self := model.NewNodeId("A")
	peerExt := model.NewNodeId("peerext-0001")
	peerInt := model.NewNodeId("peerint-0001")

	e.OnData(model.Data{SrcNodeID: self, DstNodeID: peerExt, GlobalSeq: 1, ClassSeq: 1, Class: model.ClassApi, DeclaredBytes: 10, TimestampUs: epochUs(now)}, "", now, epochUs(now))
	e.OnData(model.Data{SrcNodeID: self, DstNodeID: peerInt, GlobalSeq: 2, ClassSeq: 1, Class: model.ClassApi, DeclaredBytes: 10, TimestampUs: epochUs(now)}, "", now, epochUs(now))

	snap := e.ExportTopology(now, epochUs(now))
	domains := map[model.NodeId]model.NodeDomain{}
	for _, n := range snap.Nodes {
		domains[n.NodeID] = n.Domain
	}
	if domains[peerExt] != model.DomainExternal {
		t.Fatalf("peer-ext domain = %v, want External", domains[peerExt])
	}
	if domains[peerInt] != model.DomainInternal {
		t.Fatalf("peer-int domain = %v, want Internal", domains[peerInt])
	}
}
