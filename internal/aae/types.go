// Package aae implements the full-sync anti-entropy coordinator: the
// slice scheduler, exchange driver, repair decider and the single
// threaded state machine that ties them together. The Merkle exchange
// engine, the remote cluster HTTP surface, the replication queue and
// the membership oracle are all consumed as narrow interfaces defined
// in sibling packages; this package only paces and dispatches work.
package aae

import (
	"context"
	"fmt"
	"time"

	"github.com/ryandielhenn/zephyrcache/pkg/exchange"
)

// Control is the narrow surface cmd/coordinator's HTTP handlers call
// through, so that package can depend on an interface rather than the
// concrete *Coordinator. *Coordinator implements it.
type Control interface {
	Pause() error
	Resume() error
	SetSink(ep Endpoint) error
	SetSource(ep Endpoint) error
	SetAllSync(localNVal, remoteNVal int) error
	SetBucketSync(buckets BucketList) error
	ProcessWorkItem(ctx context.Context, kind WorkItemKind, wait bool, now time.Time) <-chan exchange.Result
	Snapshot() CoordinatorState
}

// WorkItemKind is one of the four actions a slice can fire.
type WorkItemKind uint8

const (
	NoSync WorkItemKind = iota
	AllSync
	DaySync
	HourSync
)

func (k WorkItemKind) String() string {
	switch k {
	case NoSync:
		return "no_sync"
	case AllSync:
		return "all_sync"
	case DaySync:
		return "day_sync"
	case HourSync:
		return "hour_sync"
	default:
		return fmt.Sprintf("work_item(%d)", uint8(k))
	}
}

// Scope selects how the coordinator partitions the key-space it
// compares: by n-val across the whole cluster, by a rotating bucket
// list, or not at all.
type Scope uint8

const (
	ScopeAll Scope = iota
	ScopeBucket
	ScopeDisabled
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeBucket:
		return "bucket"
	case ScopeDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

// ScheduleWants is the ordered quota 4-tuple. SliceCount is always
// their sum and must be at least 1.
type ScheduleWants struct {
	NoSync   int
	AllSync  int
	DaySync  int
	HourSync int
}

// SliceCount returns the sum of the four quotas.
func (w ScheduleWants) SliceCount() int {
	return w.NoSync + w.AllSync + w.DaySync + w.HourSync
}

// DisabledWants is the degenerate (24, 0, 0, 0) schedule used when
// Scope == ScopeDisabled: 24 NoSync slices, one per hour.
func DisabledWants() ScheduleWants {
	return ScheduleWants{NoSync: 24}
}

// Allocation pairs a 1-based slice index with the work item that fires
// at that slice.
type Allocation struct {
	Slice int
	Kind  WorkItemKind
}

// NodeInfo is this node's 1-based ordinal among the currently up nodes,
// and the total up-node count.
type NodeInfo struct {
	Ordinal int
	Count   int
}

// Bucket identifies one AAE bucket: the (bucket name, bucket type) pair
// the spec treats as a single identifier.
type Bucket struct {
	Name string
	Type string
}

func (b Bucket) String() string {
	return b.Type + "/" + b.Name
}

// Endpoint is a (protocol, ip, port) remote or local cluster address.
type Endpoint struct {
	Protocol string
	IP       string
	Port     int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s://%s:%d", e.Protocol, e.IP, e.Port)
}

// TimeRange is an inclusive [From, To] modification-time window. A
// zero TimeRange means "no filter". The driver's DaySync/HourSync
// filters do not use it; they carry their window as exchange.ModRange.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

const (
	// InitialTimeout elapses once at startup (and after reconfigure)
	// before the first slice is dispatched, letting node boot traffic
	// settle.
	InitialTimeout = 60 * time.Second
	// LoopTimeout is the minimum idle time between completing one
	// action and arming the next.
	LoopTimeout = 15 * time.Second
	// CrashTimeout upper-bounds how long the coordinator waits for an
	// in-flight exchange before giving up on it.
	CrashTimeout = 3600 * time.Second

	// daySeconds is the width of the schedule's rolling 24h window.
	daySeconds = 24 * 60 * 60
)
