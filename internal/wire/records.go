package wire

import (
	"fmt"

	"github.com/ripplenet/ripple/internal/model"
)

// EncodeRecord encodes any supported record into a tagged frame payload.
func EncodeRecord(v any) (RecordType, []byte, error) {
	e := NewEncoder()
	switch r := v.(type) {
	case model.RegisterNode:
		e.Bytes16(r.NodeID)
		e.Bytes16(r.Desc)
		e.Uint8(uint8(r.Domain))
		e.Uint64(r.TimestampUs)
		return TypeRegisterNode, e.Bytes(), nil
	case model.UnregisterNode:
		e.Bytes16(r.NodeID)
		e.Uint64(r.TimestampUs)
		return TypeUnregisterNode, e.Bytes(), nil
	case model.Data:
		encodeData(e, r)
		return TypeData, e.Bytes(), nil
	case model.Ack:
		e.Uint32(r.OriginalSeq)
		e.Uint64(r.ServerTimestampUs)
		e.Uint64(r.ServerProcessingUs)
		return TypeAck, e.Bytes(), nil
	case model.RequestAnalytics:
		return TypeRequestAnalytics, e.Bytes(), nil
	case model.RequestTopology:
		return TypeRequestTopology, e.Bytes(), nil
	case model.Analytics:
		encodeAnalyticsSnapshot(e, r.Snapshot)
		return TypeAnalytics, e.Bytes(), nil
	case model.Topology:
		encodeTopologySnapshot(e, r.Snapshot)
		return TypeTopology, e.Bytes(), nil
	default:
		return 0, nil, fmt.Errorf("wire: unsupported record type %T", v)
	}
}

// DecodeRecord decodes a tagged frame payload back into its record value.
func DecodeRecord(typ RecordType, payload []byte) (any, error) {
	d := NewDecoder(payload)
	switch typ {
	case TypeRegisterNode:
		nodeID, err := d.Bytes16()
		if err != nil {
			return nil, err
		}
		desc, err := d.Bytes16()
		if err != nil {
			return nil, err
		}
		domain, err := d.Uint8()
		if err != nil {
			return nil, err
		}
		ts, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		return model.RegisterNode{NodeID: nodeID, Desc: desc, Domain: model.NodeDomain(domain), TimestampUs: ts}, nil
	case TypeUnregisterNode:
		nodeID, err := d.Bytes16()
		if err != nil {
			return nil, err
		}
		ts, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		return model.UnregisterNode{NodeID: nodeID, TimestampUs: ts}, nil
	case TypeData:
		return decodeData(d)
	case TypeAck:
		orig, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		sts, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		spu, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		return model.Ack{OriginalSeq: orig, ServerTimestampUs: sts, ServerProcessingUs: spu}, nil
	case TypeRequestAnalytics:
		return model.RequestAnalytics{}, nil
	case TypeRequestTopology:
		return model.RequestTopology{}, nil
	case TypeAnalytics:
		snap, err := decodeAnalyticsSnapshot(d)
		if err != nil {
			return nil, err
		}
		return model.Analytics{Snapshot: snap}, nil
	case TypeTopology:
		snap, err := decodeTopologySnapshot(d)
		if err != nil {
			return nil, err
		}
		return model.Topology{Snapshot: snap}, nil
	default:
		return nil, ErrUnknownRecordType
	}
}

func encodeData(e *Encoder, r model.Data) {
	e.Bytes16(r.SrcNodeID)
	e.Bytes16(r.DstNodeID)
	e.Uint32(r.GlobalSeq)
	e.Uint32(r.ClassSeq)
	e.Uint8(uint8(r.Class))
	e.Uint64(r.TimestampUs)
	e.Uint32(r.DeclaredBytes)
	e.Bytes16(r.Desc)
	e.Uint8(uint8(r.SrcDomain))
	e.Uint8(uint8(r.DstDomain))
}

func decodeData(d *Decoder) (model.Data, error) {
	var r model.Data
	var err error
	if r.SrcNodeID, err = d.Bytes16(); err != nil {
		return r, err
	}
	if r.DstNodeID, err = d.Bytes16(); err != nil {
		return r, err
	}
	if r.GlobalSeq, err = d.Uint32(); err != nil {
		return r, err
	}
	if r.ClassSeq, err = d.Uint32(); err != nil {
		return r, err
	}
	class, err := d.Uint8()
	if err != nil {
		return r, err
	}
	r.Class = model.TrafficClass(class)
	if r.TimestampUs, err = d.Uint64(); err != nil {
		return r, err
	}
	if r.DeclaredBytes, err = d.Uint32(); err != nil {
		return r, err
	}
	if r.Desc, err = d.Bytes16(); err != nil {
		return r, err
	}
	srcDom, err := d.Uint8()
	if err != nil {
		return r, err
	}
	r.SrcDomain = model.NodeDomain(srcDom)
	dstDom, err := d.Uint8()
	if err != nil {
		return r, err
	}
	r.DstDomain = model.NodeDomain(dstDom)
	return r, nil
}

func encodeClassStats(e *Encoder, c model.ClassStats) {
	e.Uint64(c.Packets)
	e.Uint64(c.Bytes)
	e.Float64(c.Pps)
	e.Float64(c.Bps)
}

func decodeClassStats(d *Decoder) (model.ClassStats, error) {
	var c model.ClassStats
	var err error
	if c.Packets, err = d.Uint64(); err != nil {
		return c, err
	}
	if c.Bytes, err = d.Uint64(); err != nil {
		return c, err
	}
	if c.Pps, err = d.Float64(); err != nil {
		return c, err
	}
	if c.Bps, err = d.Float64(); err != nil {
		return c, err
	}
	return c, nil
}

func encodeRouteStats(e *Encoder, r model.RouteStats) {
	e.Uint64(r.Packets)
	e.Uint64(r.Bytes)
}

func decodeRouteStats(d *Decoder) (model.RouteStats, error) {
	var r model.RouteStats
	var err error
	if r.Packets, err = d.Uint64(); err != nil {
		return r, err
	}
	if r.Bytes, err = d.Uint64(); err != nil {
		return r, err
	}
	return r, nil
}

func encodeLatencyStats(e *Encoder, l model.LatencyStats) {
	e.Uint64(l.MinRttUs)
	e.Uint64(l.MaxRttUs)
	e.Float64(l.MeanRttUs)
	e.Float64(l.MeanJitterUs)
	e.Uint64(l.SampleCount)
}

func decodeLatencyStats(d *Decoder) (model.LatencyStats, error) {
	var l model.LatencyStats
	var err error
	if l.MinRttUs, err = d.Uint64(); err != nil {
		return l, err
	}
	if l.MaxRttUs, err = d.Uint64(); err != nil {
		return l, err
	}
	if l.MeanRttUs, err = d.Float64(); err != nil {
		return l, err
	}
	if l.MeanJitterUs, err = d.Float64(); err != nil {
		return l, err
	}
	if l.SampleCount, err = d.Uint64(); err != nil {
		return l, err
	}
	return l, nil
}

func encodeLossStats(e *Encoder, l model.LossStats) {
	e.Uint64(l.MissingSequences)
	e.Uint64(l.TotalGaps)
	e.Uint64(l.OutOfOrder)
	e.Uint64(l.Duplicates)
}

func decodeLossStats(d *Decoder) (model.LossStats, error) {
	var l model.LossStats
	var err error
	if l.MissingSequences, err = d.Uint64(); err != nil {
		return l, err
	}
	if l.TotalGaps, err = d.Uint64(); err != nil {
		return l, err
	}
	if l.OutOfOrder, err = d.Uint64(); err != nil {
		return l, err
	}
	if l.Duplicates, err = d.Uint64(); err != nil {
		return l, err
	}
	return l, nil
}

func encodeGlobalStats(e *Encoder, g model.GlobalStats) {
	e.Uint64(g.TotalPackets)
	e.Uint64(g.TotalBytes)
	for _, v := range g.PacketsByClass {
		e.Uint64(v)
	}
	for _, v := range g.BytesByClass {
		e.Uint64(v)
	}
	for _, rs := range g.RouteStats {
		encodeRouteStats(e, rs)
	}
	e.Uint64(g.UniqueClients)
}

func decodeGlobalStats(d *Decoder) (model.GlobalStats, error) {
	var g model.GlobalStats
	var err error
	if g.TotalPackets, err = d.Uint64(); err != nil {
		return g, err
	}
	if g.TotalBytes, err = d.Uint64(); err != nil {
		return g, err
	}
	for i := range g.PacketsByClass {
		if g.PacketsByClass[i], err = d.Uint64(); err != nil {
			return g, err
		}
	}
	for i := range g.BytesByClass {
		if g.BytesByClass[i], err = d.Uint64(); err != nil {
			return g, err
		}
	}
	for i := range g.RouteStats {
		if g.RouteStats[i], err = decodeRouteStats(d); err != nil {
			return g, err
		}
	}
	if g.UniqueClients, err = d.Uint64(); err != nil {
		return g, err
	}
	return g, nil
}

func encodeClientStats(e *Encoder, c model.ClientStats) {
	e.Bytes16(c.NodeID)
	e.Bytes16(c.Desc)
	e.String(c.Addr)
	e.Uint64(c.FirstSeenUs)
	e.Uint64(c.LastSeenUs)
	e.Uint64(c.SessionDurationUs)
	for _, cs := range c.ClassStats {
		encodeClassStats(e, cs)
	}
	encodeLatencyStats(e, c.Latency)
	encodeLossStats(e, c.Loss)
	for _, rs := range c.RouteStats {
		encodeRouteStats(e, rs)
	}
}

func decodeClientStats(d *Decoder) (model.ClientStats, error) {
	var c model.ClientStats
	var err error
	if c.NodeID, err = d.Bytes16(); err != nil {
		return c, err
	}
	if c.Desc, err = d.Bytes16(); err != nil {
		return c, err
	}
	if c.Addr, err = d.String(); err != nil {
		return c, err
	}
	if c.FirstSeenUs, err = d.Uint64(); err != nil {
		return c, err
	}
	if c.LastSeenUs, err = d.Uint64(); err != nil {
		return c, err
	}
	if c.SessionDurationUs, err = d.Uint64(); err != nil {
		return c, err
	}
	for i := range c.ClassStats {
		if c.ClassStats[i], err = decodeClassStats(d); err != nil {
			return c, err
		}
	}
	if c.Latency, err = decodeLatencyStats(d); err != nil {
		return c, err
	}
	if c.Loss, err = decodeLossStats(d); err != nil {
		return c, err
	}
	for i := range c.RouteStats {
		if c.RouteStats[i], err = decodeRouteStats(d); err != nil {
			return c, err
		}
	}
	return c, nil
}

func encodeAnalyticsSnapshot(e *Encoder, s model.AnalyticsSnapshot) {
	e.Uint64(s.SnapshotTimestampUs)
	e.Uint64(s.ServerUptimeUs)
	encodeGlobalStats(e, s.Global)
	e.Uint32(uint32(len(s.PerClient)))
	for _, c := range s.PerClient {
		encodeClientStats(e, c)
	}
}

func decodeAnalyticsSnapshot(d *Decoder) (model.AnalyticsSnapshot, error) {
	var s model.AnalyticsSnapshot
	var err error
	if s.SnapshotTimestampUs, err = d.Uint64(); err != nil {
		return s, err
	}
	if s.ServerUptimeUs, err = d.Uint64(); err != nil {
		return s, err
	}
	if s.Global, err = decodeGlobalStats(d); err != nil {
		return s, err
	}
	n, err := d.Uint32()
	if err != nil {
		return s, err
	}
	s.PerClient = make([]model.ClientStats, n)
	for i := range s.PerClient {
		if s.PerClient[i], err = decodeClientStats(d); err != nil {
			return s, err
		}
	}
	return s, nil
}

func encodeTopologyNode(e *Encoder, n model.TopologyNode) {
	e.Bytes16(n.NodeID)
	e.Bytes16(n.Desc)
	e.Uint8(uint8(n.Domain))
	e.Uint64(n.FirstSeenUs)
	e.Uint64(n.LastSeenUs)
	e.Bool(n.Active)
	e.Uint64(n.TotalPackets)
	e.Uint64(n.TotalBytes)
	e.Float64(n.TotalPps)
	e.Float64(n.TotalBps)
	encodeLatencyStats(e, n.Latency)
	encodeLossStats(e, n.Loss)
}

func decodeTopologyNode(d *Decoder) (model.TopologyNode, error) {
	var n model.TopologyNode
	var err error
	if n.NodeID, err = d.Bytes16(); err != nil {
		return n, err
	}
	if n.Desc, err = d.Bytes16(); err != nil {
		return n, err
	}
	domain, err := d.Uint8()
	if err != nil {
		return n, err
	}
	n.Domain = model.NodeDomain(domain)
	if n.FirstSeenUs, err = d.Uint64(); err != nil {
		return n, err
	}
	if n.LastSeenUs, err = d.Uint64(); err != nil {
		return n, err
	}
	if n.Active, err = d.Bool(); err != nil {
		return n, err
	}
	if n.TotalPackets, err = d.Uint64(); err != nil {
		return n, err
	}
	if n.TotalBytes, err = d.Uint64(); err != nil {
		return n, err
	}
	if n.TotalPps, err = d.Float64(); err != nil {
		return n, err
	}
	if n.TotalBps, err = d.Float64(); err != nil {
		return n, err
	}
	if n.Latency, err = decodeLatencyStats(d); err != nil {
		return n, err
	}
	if n.Loss, err = decodeLossStats(d); err != nil {
		return n, err
	}
	return n, nil
}

func encodeTopologyEdge(e *Encoder, ed model.TopologyEdge) {
	e.Bytes16(ed.EdgeID)
	e.Bytes16(ed.SrcNodeID)
	e.Bytes16(ed.DstNodeID)
	e.Uint8(uint8(ed.Class))
	e.Uint64(ed.Packets)
	e.Uint64(ed.Bytes)
	e.Float64(ed.Pps)
	e.Float64(ed.Bps)
	e.Float64(ed.DeltaPps)
	e.Float64(ed.DeltaBps)
	e.Float64(ed.LatencyEwmaUs)
	e.Float64(ed.LatencyDeltaUs)
	e.Float64(ed.JitterEwmaUs)
	e.Float64(ed.LossRateWindow)
	e.Bool(ed.Active)
}

func decodeTopologyEdge(d *Decoder) (model.TopologyEdge, error) {
	var ed model.TopologyEdge
	var err error
	if ed.EdgeID, err = d.Bytes16(); err != nil {
		return ed, err
	}
	if ed.SrcNodeID, err = d.Bytes16(); err != nil {
		return ed, err
	}
	if ed.DstNodeID, err = d.Bytes16(); err != nil {
		return ed, err
	}
	class, err := d.Uint8()
	if err != nil {
		return ed, err
	}
	ed.Class = model.TrafficClass(class)
	if ed.Packets, err = d.Uint64(); err != nil {
		return ed, err
	}
	if ed.Bytes, err = d.Uint64(); err != nil {
		return ed, err
	}
	if ed.Pps, err = d.Float64(); err != nil {
		return ed, err
	}
	if ed.Bps, err = d.Float64(); err != nil {
		return ed, err
	}
	if ed.DeltaPps, err = d.Float64(); err != nil {
		return ed, err
	}
	if ed.DeltaBps, err = d.Float64(); err != nil {
		return ed, err
	}
	if ed.LatencyEwmaUs, err = d.Float64(); err != nil {
		return ed, err
	}
	if ed.LatencyDeltaUs, err = d.Float64(); err != nil {
		return ed, err
	}
	if ed.JitterEwmaUs, err = d.Float64(); err != nil {
		return ed, err
	}
	if ed.LossRateWindow, err = d.Float64(); err != nil {
		return ed, err
	}
	if ed.Active, err = d.Bool(); err != nil {
		return ed, err
	}
	return ed, nil
}

func encodeTopologySnapshot(e *Encoder, s model.TopologySnapshot) {
	e.Uint64(s.SnapshotSeq)
	e.Uint64(s.SnapshotTimestampEpochUs)
	e.Uint64(s.SnapshotIntervalUs)
	e.Uint32(uint32(len(s.Nodes)))
	for _, n := range s.Nodes {
		encodeTopologyNode(e, n)
	}
	e.Uint32(uint32(len(s.Edges)))
	for _, ed := range s.Edges {
		encodeTopologyEdge(e, ed)
	}
	e.Uint32(uint32(len(s.RemovedNodes)))
	for _, id := range s.RemovedNodes {
		e.Bytes16(id)
	}
	e.Uint32(uint32(len(s.RemovedEdges)))
	for _, id := range s.RemovedEdges {
		e.Bytes16(id)
	}
	encodeGlobalStats(e, s.Global)
}

func decodeTopologySnapshot(d *Decoder) (model.TopologySnapshot, error) {
	var s model.TopologySnapshot
	var err error
	if s.SnapshotSeq, err = d.Uint64(); err != nil {
		return s, err
	}
	if s.SnapshotTimestampEpochUs, err = d.Uint64(); err != nil {
		return s, err
	}
	if s.SnapshotIntervalUs, err = d.Uint64(); err != nil {
		return s, err
	}
	nNodes, err := d.Uint32()
	if err != nil {
		return s, err
	}
	s.Nodes = make([]model.TopologyNode, nNodes)
	for i := range s.Nodes {
		if s.Nodes[i], err = decodeTopologyNode(d); err != nil {
			return s, err
		}
	}
	nEdges, err := d.Uint32()
	if err != nil {
		return s, err
	}
	s.Edges = make([]model.TopologyEdge, nEdges)
	for i := range s.Edges {
		if s.Edges[i], err = decodeTopologyEdge(d); err != nil {
			return s, err
		}
	}
	nRemNodes, err := d.Uint32()
	if err != nil {
		return s, err
	}
	s.RemovedNodes = make([]model.NodeId, nRemNodes)
	for i := range s.RemovedNodes {
		if s.RemovedNodes[i], err = d.Bytes16(); err != nil {
			return s, err
		}
	}
	nRemEdges, err := d.Uint32()
	if err != nil {
		return s, err
	}
	s.RemovedEdges = make([]model.EdgeId, nRemEdges)
	for i := range s.RemovedEdges {
		if s.RemovedEdges[i], err = d.Bytes16(); err != nil {
			return s, err
		}
	}
	if s.Global, err = decodeGlobalStats(d); err != nil {
		return s, err
	}
	return s, nil
}
