package telemetry

import "github.com/ripplenet/ripple/internal/model"

// InferDomain implements spec.md §4.D's domain-inference heuristic for
// nodes that were never explicitly registered: the only signal available
// for an unknown endpoint is the id itself. This looks at the first five
// bytes actually present on the wire — if they spell "peer" followed by
// 'e', the node is External; "peer" followed by 'i' is Internal;
// everything else defaults to Internal.
//
// Implementers substituting a different heuristic should document it here
// (spec.md §9 calls this out as load-bearing, testable behavior).
func InferDomain(id model.NodeId) model.NodeDomain {
	if len(id) < 5 {
		return model.DomainInternal
	}
	if id[0] == 'p' && id[1] == 'e' && id[2] == 'e' && id[3] == 'r' {
		switch id[4] {
		case 'e':
			return model.DomainExternal
		case 'i':
			return model.DomainInternal
		}
	}
	return model.DomainInternal
}
