// Package model defines the wire-level and domain identifiers shared by the
// ripple server and client: node/edge ids, traffic classes, domains, and the
// record types exchanged over the UDP transport.
package model

import (
	"bytes"
	"encoding/hex"
)

// NodeId is an opaque 16-byte node identifier. Equality and hashing treat it
// as a bag of bits; callers that derive ids from text (e.g. peer names) are
// responsible for zero-padding or truncating to 16 bytes themselves.
type NodeId [16]byte

// EdgeId is an opaque 16-byte edge identifier, derived deterministically
// from an edge's (src, dst, class) key. See telemetry.DeriveEdgeID.
type EdgeId [16]byte

// String returns the hex encoding of the id, for logging.
func (e EdgeId) String() string {
	return hex.EncodeToString(e[:])
}

// Desc is a fixed 16-byte, zero-padded text label.
type Desc [16]byte

// NewDesc truncates or zero-pads s to 16 bytes.
func NewDesc(s string) Desc {
	var d Desc
	n := copy(d[:], s)
	_ = n
	return d
}

// String returns the label with trailing zero bytes trimmed.
func (d Desc) String() string {
	return string(bytes.TrimRight(d[:], "\x00"))
}

// NewNodeId truncates or zero-pads s to 16 bytes.
func NewNodeId(s string) NodeId {
	var id NodeId
	copy(id[:], s)
	return id
}

// String returns the id with trailing zero bytes trimmed, for logging.
func (n NodeId) String() string {
	return string(bytes.TrimRight(n[:], "\x00"))
}

// TrafficClass is a 4-valued QoS tag; its ordinal indexes per-class arrays.
type TrafficClass uint8

const (
	ClassApi TrafficClass = iota
	ClassHeavyCompute
	ClassBackground
	ClassHealthCheck

	NumClasses = 4
)

func (c TrafficClass) String() string {
	switch c {
	case ClassApi:
		return "api"
	case ClassHeavyCompute:
		return "heavy_compute"
	case ClassBackground:
		return "background"
	case ClassHealthCheck:
		return "health_check"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the four defined classes.
func (c TrafficClass) Valid() bool {
	return c < NumClasses
}

// NodeDomain tags a node as internal or external to the monitored network.
type NodeDomain uint8

const (
	DomainInternal NodeDomain = iota
	DomainExternal
)

func (d NodeDomain) String() string {
	if d == DomainExternal {
		return "external"
	}
	return "internal"
}

// RouteIndex returns the canonical route index for a (src, dst) domain pair:
// 2*dstExt + srcExt, so {Int->Int, Ext->Int, Int->Ext, Ext->Ext} = {0, 1, 2, 3}.
func RouteIndex(src, dst NodeDomain) int {
	srcExt := 0
	if src == DomainExternal {
		srcExt = 1
	}
	dstExt := 0
	if dst == DomainExternal {
		dstExt = 1
	}
	return 2*dstExt + srcExt
}

const NumRoutes = 4

// RouteLabel names a route index for logging/snapshot rendering.
func RouteLabel(idx int) string {
	labels := [NumRoutes]string{"int_int", "ext_int", "int_ext", "ext_ext"}
	if idx < 0 || idx >= NumRoutes {
		return "unknown"
	}
	return labels[idx]
}
