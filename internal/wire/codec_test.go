package wire

import (
	"reflect"
	"testing"

	"github.com/ripplenet/ripple/internal/model"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	typ, payload, err := EncodeRecord(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRecord(typ, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestRoundTripEveryRecordVariant(t *testing.T) {
	nodeA := model.NewNodeId("NODE-ALPHA-00001")
	nodeB := model.NewNodeId("NODE-BRAVO-00002")
	desc := model.NewDesc("alpha")

	cases := []any{
		model.RegisterNode{NodeID: nodeA, Desc: desc, Domain: model.DomainInternal, TimestampUs: 12345},
		model.UnregisterNode{NodeID: nodeA, TimestampUs: 999},
		model.Data{
			SrcNodeID: nodeA, DstNodeID: nodeB, GlobalSeq: 7, ClassSeq: 3,
			Class: model.ClassHeavyCompute, TimestampUs: 555, DeclaredBytes: 1200,
			Desc: desc, SrcDomain: model.DomainInternal, DstDomain: model.DomainExternal,
		},
		model.Ack{OriginalSeq: 7, ServerTimestampUs: 42, ServerProcessingUs: 0},
		model.RequestAnalytics{},
		model.RequestTopology{},
		model.Analytics{Snapshot: model.AnalyticsSnapshot{
			SnapshotTimestampUs: 1, ServerUptimeUs: 2,
			Global: model.GlobalStats{TotalPackets: 3, TotalBytes: 4, UniqueClients: 1},
			PerClient: []model.ClientStats{
				{NodeID: nodeA, Desc: desc, Addr: "127.0.0.1:9000", FirstSeenUs: 1, LastSeenUs: 2},
			},
		}},
		model.Topology{Snapshot: model.TopologySnapshot{
			SnapshotSeq: 1, SnapshotTimestampEpochUs: 2, SnapshotIntervalUs: 3,
			Nodes: []model.TopologyNode{{NodeID: nodeA, Desc: desc, Domain: model.DomainInternal, Active: true}},
			Edges: []model.TopologyEdge{{EdgeID: model.EdgeId{1, 2}, SrcNodeID: nodeA, DstNodeID: nodeB, Class: model.ClassApi, Packets: 1, Bytes: 1200, Active: true}},
			RemovedNodes: []model.NodeId{nodeB},
			RemovedEdges: []model.EdgeId{{9, 9}},
		}},
	}

	for _, c := range cases {
		got := roundTrip(t, c)
		if !reflect.DeepEqual(got, c) {
			t.Errorf("round trip mismatch for %T:\n got=%#v\nwant=%#v", c, got, c)
		}
	}
}

func TestDecodeUnknownRecordType(t *testing.T) {
	_, err := DecodeRecord(RecordType(250), nil)
	if err != ErrUnknownRecordType {
		t.Fatalf("got %v, want ErrUnknownRecordType", err)
	}
}

func TestReadFrameTypeTruncated(t *testing.T) {
	_, _, err := ReadFrameType([]byte{1, 2})
	if err != ErrTruncated {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf []byte
	w := &sliceWriter{buf: &buf}
	typ, payload, err := EncodeRecord(model.Ack{OriginalSeq: 9, ServerTimestampUs: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteFrame(w, typ, payload); err != nil {
		t.Fatal(err)
	}
	gotType, gotPayload, err := ReadFrameType(buf)
	if err != nil {
		t.Fatal(err)
	}
	if gotType != typ {
		t.Fatalf("type = %v, want %v", gotType, typ)
	}
	got, err := DecodeRecord(gotType, gotPayload)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, model.Ack{OriginalSeq: 9, ServerTimestampUs: 1}) {
		t.Fatalf("got %#v", got)
	}
}

type sliceWriter struct{ buf *[]byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}
