package aae

import (
	"math/rand"
	"testing"
	"time"
)

func TestDispatch_EmptyPendingRegeneratesPlan(t *testing.T) {
	now := time.Now()
	scheduleStart := now.Add(-24 * time.Hour)
	wants := ScheduleWants{NoSync: 100}
	node := NodeInfo{Ordinal: 1, Count: 8}

	kind, wait, pending, newStart := Dispatch(nil, wants, scheduleStart, node, 100, now, rand.New(rand.NewSource(1)), nil)

	if kind != NoSync {
		t.Fatalf("kind = %v, want NoSync", kind)
	}
	if wait <= 0 {
		t.Fatalf("wait = %v, want > 0", wait)
	}
	if !newStart.After(now) {
		t.Fatalf("newStart = %v, want after now (%v)", newStart, now)
	}
	if len(pending) != 99 {
		t.Fatalf("pending len = %d, want 99", len(pending))
	}
}

func TestDispatch_NodeStaggerIsMonotonic(t *testing.T) {
	now := time.Now()
	scheduleStart := now.Add(-24 * time.Hour)
	wants := ScheduleWants{NoSync: 100}

	_, wait1, _, _ := Dispatch(nil, wants, scheduleStart, NodeInfo{Ordinal: 1, Count: 8}, 100, now, rand.New(rand.NewSource(1)), nil)
	_, wait2, _, _ := Dispatch(nil, wants, scheduleStart, NodeInfo{Ordinal: 2, Count: 8}, 100, now, rand.New(rand.NewSource(1)), nil)
	_, wait7, _, _ := Dispatch(nil, wants, scheduleStart, NodeInfo{Ordinal: 7, Count: 8}, 100, now, rand.New(rand.NewSource(1)), nil)

	if wait2 <= wait1 {
		t.Fatalf("wait2 (%v) should be > wait1 (%v)", wait2, wait1)
	}
	if wait7 <= wait2 {
		t.Fatalf("wait7 (%v) should be > wait2 (%v)", wait7, wait2)
	}
}

func TestDispatch_SkipsOverdueSlices(t *testing.T) {
	now := time.Now()
	// scheduleStart is far enough in the past that every slice of the
	// forced 3-slice pending list is already overdue, so the skip path
	// runs before any plan regeneration.
	scheduleStart := now.Add(-48 * time.Hour)
	pending := []Allocation{
		{Slice: 1, Kind: NoSync},
		{Slice: 2, Kind: AllSync},
		{Slice: 3, Kind: HourSync},
	}
	wants := ScheduleWants{NoSync: 1, AllSync: 1, HourSync: 1}
	node := NodeInfo{Ordinal: 1, Count: 1}

	kind, wait, remaining, newStart := Dispatch(pending, wants, scheduleStart, node, 3, now, rand.New(rand.NewSource(9)), nil)

	// All three original allocations are overdue (scheduleStart is 48h
	// in the past for a 24h window), so Dispatch regenerates. The first
	// fresh plan starts at now-24h and its last slice fires exactly at
	// now, which is not in the future, so it is skipped too; the second
	// plan starts at now and supplies the returned slice.
	if wait <= 0 {
		t.Fatalf("wait = %v, want > 0", wait)
	}
	if !newStart.After(scheduleStart.Add(24 * time.Hour)) {
		t.Fatalf("expected schedule to have advanced past one regeneration, got %v", newStart)
	}
	_ = kind
	_ = remaining
}

func TestDispatch_RegenerationAdvancesByExactlyOneDay(t *testing.T) {
	now := time.Now()
	scheduleStart := now.Add(-24 * time.Hour)
	wants := ScheduleWants{NoSync: 50}
	node := NodeInfo{Ordinal: 1, Count: 1}

	_, _, _, newStart := Dispatch(nil, wants, scheduleStart, node, 50, now, rand.New(rand.NewSource(2)), nil)

	want := scheduleStart.Add(24 * time.Hour)
	if !newStart.Equal(want) {
		t.Fatalf("newStart = %v, want %v", newStart, want)
	}
}
