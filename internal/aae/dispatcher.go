package aae

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/zephyrcache/internal/telemetry"
)

// sliceSeconds is how evenly the SliceCount slices are spread across a
// 24h schedule window.
func sliceSeconds(sliceCount int) time.Duration {
	return time.Duration(daySeconds/int64(sliceCount)) * time.Second
}

// fireTime computes when slice k is due for this node, staggering
// nodes within a slice so N concurrent nodes do not all fire at once.
func fireTime(scheduleStart time.Time, sliceCount int, node NodeInfo, slice int) time.Time {
	ss := sliceSeconds(sliceCount)
	perNodeOffset := time.Duration(0)
	if node.Count > 0 {
		perNodeOffset = time.Duration(int64(node.Ordinal-1) * int64(ss) / int64(node.Count))
	}
	return scheduleStart.Add(perNodeOffset + time.Duration(slice)*ss)
}

// Dispatch picks the next due slice. If pending is empty it asks the
// Planner for a fresh day's plan first, advancing scheduleStart by
// exactly 86400 seconds. Overdue slices (fire time already passed) are
// skipped — not fired back-to-back — to avoid synchronized bursts
// across nodes after a coordinator was paused or restarted.
func Dispatch(
	pending []Allocation,
	wants ScheduleWants,
	scheduleStart time.Time,
	node NodeInfo,
	sliceCount int,
	now time.Time,
	rng *rand.Rand,
	log *zap.Logger,
) (kind WorkItemKind, wait time.Duration, remaining []Allocation, revisedStart time.Time) {
	for {
		if len(pending) == 0 {
			pending = PlanDay(wants, rng)
			scheduleStart = scheduleStart.Add(daySeconds * time.Second)
			telemetry.AAESchedulesRegenerated.Inc()
			continue
		}

		head := pending[0]
		tail := pending[1:]
		ft := fireTime(scheduleStart, sliceCount, node, head.Slice)
		if ft.After(now) {
			telemetry.AAESlicesDispatched.WithLabelValues(head.Kind.String()).Inc()
			return head.Kind, ft.Sub(now), tail, scheduleStart
		}

		if log != nil {
			log.Warn("skipping overdue slice",
				zap.Int("slice", head.Slice),
				zap.Stringer("kind", head.Kind),
				zap.Time("fire_time", ft),
				zap.Time("now", now),
			)
		}
		pending = tail
	}
}
