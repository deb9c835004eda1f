package aae

import (
	"math/rand"
	"sort"
)

// PlanDay lays out one day's worth of slices for the given quotas. It
// returns a list of length wants.SliceCount(), one allocation per
// slice in 1..SliceCount, sorted ascending by slice index, whose kind
// frequencies match the quotas exactly.
//
// Algorithm: start from the ordered sequence 1..SliceCount and, for
// each kind in turn (NoSync, AllSync, DaySync, HourSync), draw that
// kind's quota worth of slices uniformly at random without
// replacement from what remains, then sort the result by slice index.
// Fixing the kind order only affects which random draws land on which
// kind — the resulting distribution is a uniform permutation of the
// kind multiset either way.
func PlanDay(wants ScheduleWants, rng *rand.Rand) []Allocation {
	sliceCount := wants.SliceCount()
	remaining := make([]int, sliceCount)
	for i := range remaining {
		remaining[i] = i + 1
	}

	plan := make([]Allocation, 0, sliceCount)
	quotas := []struct {
		kind  WorkItemKind
		count int
	}{
		{NoSync, wants.NoSync},
		{AllSync, wants.AllSync},
		{DaySync, wants.DaySync},
		{HourSync, wants.HourSync},
	}

	for _, q := range quotas {
		for i := 0; i < q.count; i++ {
			idx := rng.Intn(len(remaining))
			plan = append(plan, Allocation{Slice: remaining[idx], Kind: q.kind})
			remaining[idx] = remaining[len(remaining)-1]
			remaining = remaining[:len(remaining)-1]
		}
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i].Slice < plan[j].Slice })
	return plan
}
