// Package exchange defines the narrow interface the coordinator uses
// to start one AAE exchange and supply it with send/repair/reply
// callbacks. The Merkle-tree computation, segment descent, and
// key/clock retrieval live entirely inside the engine implementation —
// this package only describes the extension surface the coordinator's
// exchange driver plugs into.
package exchange

import (
	"context"
	"time"

	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

// Ref describes how completely the exchange covers the key-space:
// "full" for a whole-cluster AllSync under Scope All, "partial" for a
// bucket-scoped exchange.
type Ref string

const (
	RefFull    Ref = "full"
	RefPartial Ref = "partial"
)

// SegmentFilter is either "all segments" or an explicit list with a
// tree size hint. The engine emits the richer shape; HTTP clients want
// the flattened (segList, treeSize) pair — that reshaping is the
// driver's job (aaeclient.SegmentFilter), not this package's.
type SegmentFilter struct {
	All      bool
	Segments []int
	TreeSize TreeSize
}

// TreeSize scales with the comparison window: wider windows can hide
// more divergence per segment, so they get a bigger tree; narrower
// windows get a smaller one to keep the per-exchange cost down.
type TreeSize string

const (
	TreeSizeSmall  TreeSize = "small"
	TreeSizeMedium TreeSize = "medium"
	TreeSizeLarge  TreeSize = "large"
)

// KeyClock is one (bucket, key, vector clock) tuple as retrieved from a
// cluster side.
type KeyClock struct {
	Bucket string
	Key    string
	VClock vclock.Clock
}

// Root is an opaque top-level Merkle root hash.
type Root []byte

// Branch is one branch-level hash, keyed by its branch id.
type Branch struct {
	ID   int
	Hash []byte
}

// Tree is an imported segment-hash tree as returned by a range merge.
type Tree struct {
	SegmentHashes map[int][]byte
}

// RangeTreeRequest parameterizes merge_tree_range. BucketAll requests
// the whole-cluster comparison Scope All uses: Bucket is ignored and
// every bucket on the node side is scanned, the range-request
// counterpart to merge_root/merge_branches always being whole-cluster.
type RangeTreeRequest struct {
	Bucket     string
	BucketAll  bool
	KeyRange   KeyRange
	TreeSize   TreeSize
	Filter     SegmentFilter
	ModRange   ModRange
	HashMethod string
}

// RangeClocksRequest parameterizes fetch_clocks_range. BucketAll is
// RangeTreeRequest's BucketAll.
type RangeClocksRequest struct {
	Bucket    string
	BucketAll bool
	KeyRange  KeyRange
	Filter    SegmentFilter
	ModRange  ModRange
}

// KeyRange is either unbounded ("all keys") or an explicit [From, To).
type KeyRange struct {
	All  bool
	From string
	To   string
}

// ModRange is either unbounded ("all times") or an explicit
// modification-time window.
type ModRange struct {
	All  bool
	From time.Time
	To   time.Time
}

// SendFun is the engine's outbound capability for one side (source or
// sink) of an exchange. Implementations must dispatch asynchronously
// so the local and remote calls the driver issues for the two sides of
// an exchange run concurrently; the engine's colored-reply mechanism
// is how responses come back, not the return value of these calls in
// a production engine. The in-process fake engine in this package
// instead calls the two sides' methods from separate goroutines and
// uses their return values directly.
type SendFun interface {
	FetchRoot(ctx context.Context) (Root, error)
	FetchBranches(ctx context.Context, branchIDs []int) ([]Branch, error)
	FetchClocks(ctx context.Context, segmentIDs []int) ([]KeyClock, error)
	MergeTreeRange(ctx context.Context, req RangeTreeRequest) (Tree, error)
	FetchClocksRange(ctx context.Context, req RangeClocksRequest) ([]KeyClock, error)
}

// Divergence is one key whose source and sink vector clocks disagree.
type Divergence struct {
	Bucket   string
	Key      string
	SourceVC vclock.Clock
	SinkVC   vclock.Clock
}

// RepairFun is invoked once with the full divergence list the engine
// computed.
type RepairFun interface {
	Repair(ctx context.Context, divergences []Divergence) error
}

// Result is what the engine reports back through ReplyFun on
// completion (success or protocol error).
type Result struct {
	ExchangeID   ID
	Divergences  int
	Err          error
}

// ReplyFun is invoked once when the engine finishes (or gives up). If
// the exchange was started on behalf of a requester (reqID != ""), the
// driver forwards Result to that requester before dropping back to the
// coordinator's normal post-action wait.
type ReplyFun interface {
	Complete(ctx context.Context, result Result)
}

// ID identifies one running exchange.
type ID string

// StartOptions parameterizes Engine.Start; see the Scope x WorkItem
// table in the exchange driver for how these are derived.
type StartOptions struct {
	LocalNVal  int
	RemoteNVal int
	Filter     *RangeTreeRequest // nil for a plain n-val exchange (All x AllSync)
	Ref        Ref
	Source     SendFun
	Sink       SendFun
	OnRepair   RepairFun
	OnReply    ReplyFun
}

// Engine starts one AAE exchange. The real engine (out of scope for
// this repository) performs Merkle comparisons, descends mismatched
// branches, and eventually calls OnRepair then OnReply; this package
// only has to get the coordinator's intent there and the results back.
type Engine interface {
	Start(ctx context.Context, opts StartOptions) (ID, error)
}
