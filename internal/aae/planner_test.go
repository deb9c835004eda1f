package aae

import (
	"math/rand"
	"testing"
)

func TestPlanDay_AllNoSync(t *testing.T) {
	wants := ScheduleWants{NoSync: 100}
	plan := PlanDay(wants, rand.New(rand.NewSource(1)))
	if len(plan) != 100 {
		t.Fatalf("len = %d, want 100", len(plan))
	}
	for i, a := range plan {
		if a.Slice != i+1 {
			t.Fatalf("plan[%d].Slice = %d, want %d", i, a.Slice, i+1)
		}
		if a.Kind != NoSync {
			t.Fatalf("plan[%d].Kind = %v, want NoSync", i, a.Kind)
		}
	}
}

func TestPlanDay_AllAllSync(t *testing.T) {
	wants := ScheduleWants{AllSync: 100}
	plan := PlanDay(wants, rand.New(rand.NewSource(2)))
	if len(plan) != 100 {
		t.Fatalf("len = %d, want 100", len(plan))
	}
	for i, a := range plan {
		if a.Slice != i+1 || a.Kind != AllSync {
			t.Fatalf("plan[%d] = %+v, want slice=%d kind=AllSync", i, a, i+1)
		}
	}
}

func TestPlanDay_MixedQuotas(t *testing.T) {
	wants := ScheduleWants{AllSync: 1, DaySync: 4, HourSync: 95}
	plan := PlanDay(wants, rand.New(rand.NewSource(3)))
	if len(plan) != 100 {
		t.Fatalf("len = %d, want 100", len(plan))
	}

	counts := map[WorkItemKind]int{}
	maxHourSlice := 0
	for i, a := range plan {
		counts[a.Kind]++
		if a.Kind == HourSync && a.Slice > maxHourSlice {
			maxHourSlice = a.Slice
		}
		if i > 0 && plan[i-1].Slice >= a.Slice {
			t.Fatalf("plan not strictly increasing at %d: %d >= %d", i, plan[i-1].Slice, a.Slice)
		}
	}
	if counts[HourSync] != 95 {
		t.Fatalf("hour_sync count = %d, want 95", counts[HourSync])
	}
	if counts[DaySync] != 4 {
		t.Fatalf("day_sync count = %d, want 4", counts[DaySync])
	}
	if counts[AllSync] != 1 {
		t.Fatalf("all_sync count = %d, want 1", counts[AllSync])
	}
	if maxHourSlice < 95 {
		t.Fatalf("max hour_sync slice = %d, want >= 95", maxHourSlice)
	}
}

func TestPlanDay_SlicesArePermutation(t *testing.T) {
	wants := ScheduleWants{NoSync: 10, AllSync: 5, DaySync: 3, HourSync: 2}
	plan := PlanDay(wants, rand.New(rand.NewSource(4)))
	seen := make(map[int]bool, len(plan))
	for _, a := range plan {
		if a.Slice < 1 || a.Slice > wants.SliceCount() {
			t.Fatalf("slice %d out of range [1,%d]", a.Slice, wants.SliceCount())
		}
		if seen[a.Slice] {
			t.Fatalf("slice %d appears twice", a.Slice)
		}
		seen[a.Slice] = true
	}
	if len(seen) != wants.SliceCount() {
		t.Fatalf("saw %d distinct slices, want %d", len(seen), wants.SliceCount())
	}
}

func TestPlanDay_StrictlyIncreasing(t *testing.T) {
	wants := ScheduleWants{NoSync: 20, AllSync: 20, DaySync: 20, HourSync: 20}
	plan := PlanDay(wants, rand.New(rand.NewSource(5)))
	for i := 1; i < len(plan); i++ {
		if plan[i-1].Slice >= plan[i].Slice {
			t.Fatalf("not strictly increasing at index %d", i)
		}
	}
}
