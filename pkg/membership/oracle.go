// Package membership supplies the cluster membership oracle the
// coordinator consumes to compute its node ordinal and node count
// (spec §6): upNodes() and selfNode(), with ordinal = index of self in
// sorted(upNodes) + 1.
package membership

import (
	"context"
	"sort"

	"github.com/ryandielhenn/zephyrcache/internal/aae"
)

// Oracle enumerates currently up-nodes and reports this node's
// identity among them.
type Oracle interface {
	UpNodes(ctx context.Context) ([]string, error)
	SelfNode() string
}

// NodeInfo is the (ordinal, count) pair the coordinator's scheduler
// consumes, computed from an Oracle the same way on every call so a
// node join or leave is picked up on the very next dispatch.
type NodeInfo struct {
	Ordinal int
	Count   int
}

// Resolve computes NodeInfo from an Oracle: ordinal is self's 1-based
// position in the sorted up-node list, count is the list's length.
func Resolve(ctx context.Context, o Oracle) (NodeInfo, error) {
	nodes, err := o.UpNodes(ctx)
	if err != nil {
		return NodeInfo{}, err
	}
	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)

	self := o.SelfNode()
	idx := sort.SearchStrings(sorted, self)
	if idx == len(sorted) || sorted[idx] != self {
		// Self not in the up-node list yet (e.g. registration still
		// propagating) — report ordinal 1 with the listed node count
		// (at least 1) rather than failing the dispatch outright.
		return NodeInfo{Ordinal: 1, Count: max(len(sorted), 1)}, nil
	}
	return NodeInfo{Ordinal: idx + 1, Count: len(sorted)}, nil
}

// AsNodeInfoFunc adapts an Oracle into the aae.NodeInfoFunc the
// coordinator calls on every idle timeout, so cmd/coordinator can wire
// an EtcdOracle or GossipOracle straight into NewCoordinator without a
// caller-side shim.
func AsNodeInfoFunc(o Oracle) aae.NodeInfoFunc {
	return func(ctx context.Context) (aae.NodeInfo, error) {
		info, err := Resolve(ctx, o)
		if err != nil {
			return aae.NodeInfo{}, err
		}
		return aae.NodeInfo{Ordinal: info.Ordinal, Count: info.Count}, nil
	}
}
