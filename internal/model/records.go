package model

// RegisterNode announces a node's identity to the server.
type RegisterNode struct {
	NodeID      NodeId
	Desc        Desc
	Domain      NodeDomain
	TimestampUs uint64
}

// UnregisterNode asks the server to remove a node (and its edges).
type UnregisterNode struct {
	NodeID      NodeId
	TimestampUs uint64
}

// Data carries one classified traffic sample from src to dst.
type Data struct {
	SrcNodeID      NodeId
	DstNodeID      NodeId
	GlobalSeq      uint32
	ClassSeq       uint32
	Class          TrafficClass
	TimestampUs    uint64 // sender wall-clock microseconds since the Unix epoch
	DeclaredBytes  uint32
	Desc           Desc
	SrcDomain      NodeDomain
	DstDomain      NodeDomain
}

// Ack is the server's synchronous reply to a Data packet.
type Ack struct {
	OriginalSeq       uint32
	ServerTimestampUs uint64
	ServerProcessingUs uint64 // always 0; preserved for wire compatibility (spec.md open question)
}

// RequestAnalytics asks the server to render a flat analytics snapshot.
type RequestAnalytics struct{}

// RequestTopology asks the server to render a topology snapshot.
type RequestTopology struct{}

// Analytics wraps a rendered AnalyticsSnapshot for the wire.
type Analytics struct {
	Snapshot AnalyticsSnapshot
}

// Topology wraps a rendered TopologySnapshot for the wire.
type Topology struct {
	Snapshot TopologySnapshot
}

// ClassStats aggregates packets/bytes/rate for one traffic class.
type ClassStats struct {
	Packets uint64
	Bytes   uint64
	Pps     float64
	Bps     float64
}

// RouteStats aggregates packets/bytes for one route quadrant.
type RouteStats struct {
	Packets uint64
	Bytes   uint64
}

// LatencyStats is a readout of a latency/jitter accumulator.
type LatencyStats struct {
	MinRttUs    uint64
	MaxRttUs    uint64
	MeanRttUs   float64
	MeanJitterUs float64
	SampleCount uint64
}

// LossStats summarizes a sequence tracker's state.
type LossStats struct {
	MissingSequences uint64
	TotalGaps        uint64
	OutOfOrder       uint64
	Duplicates       uint64
}

// GlobalStats is the server-wide aggregate carried in both snapshot kinds.
type GlobalStats struct {
	TotalPackets   uint64
	TotalBytes     uint64
	PacketsByClass [NumClasses]uint64
	BytesByClass   [NumClasses]uint64
	RouteStats     [NumRoutes]RouteStats
	UniqueClients  uint64
}

// ClientStats is one row of the flat analytics snapshot.
type ClientStats struct {
	NodeID           NodeId
	Desc             Desc
	Addr             string
	FirstSeenUs      uint64
	LastSeenUs       uint64
	SessionDurationUs uint64
	ClassStats       [NumClasses]ClassStats
	Latency          LatencyStats
	Loss             LossStats
	RouteStats       [NumRoutes]RouteStats
}

// AnalyticsSnapshot is the flat, per-client analytics view.
type AnalyticsSnapshot struct {
	SnapshotTimestampUs uint64
	ServerUptimeUs      uint64
	Global              GlobalStats
	PerClient           []ClientStats
}

// TopologyNode is one node row in a topology snapshot.
type TopologyNode struct {
	NodeID      NodeId
	Desc        Desc
	Domain      NodeDomain
	FirstSeenUs uint64
	LastSeenUs  uint64
	Active      bool
	TotalPackets uint64
	TotalBytes   uint64
	TotalPps     float64
	TotalBps     float64
	Latency      LatencyStats
	Loss         LossStats
}

// TopologyEdge is one edge row in a topology snapshot.
type TopologyEdge struct {
	EdgeID          EdgeId
	SrcNodeID       NodeId
	DstNodeID       NodeId
	Class           TrafficClass
	Packets         uint64
	Bytes           uint64
	Pps             float64
	Bps             float64
	DeltaPps        float64
	DeltaBps        float64
	LatencyEwmaUs   float64
	LatencyDeltaUs  float64
	JitterEwmaUs    float64
	LossRateWindow  float64
	Active          bool
}

// TopologySnapshot is the graph-first, delta-aware topology view.
type TopologySnapshot struct {
	SnapshotSeq              uint64
	SnapshotTimestampEpochUs uint64
	SnapshotIntervalUs       uint64
	Nodes                    []TopologyNode
	Edges                    []TopologyEdge
	RemovedNodes             []NodeId
	RemovedEdges             []EdgeId
	Global                   GlobalStats
}
