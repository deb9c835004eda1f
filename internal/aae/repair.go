package aae

import (
	"context"

	"go.uber.org/zap"

	"github.com/ryandielhenn/zephyrcache/internal/telemetry"
	"github.com/ryandielhenn/zephyrcache/pkg/replrtq"
	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

// Divergence is one key/clock mismatch reported by the exchange engine.
type Divergence struct {
	Bucket     string
	Key        string
	SourceVC   vclock.Clock
	SinkVC     vclock.Clock
}

// RepairSummary is the partition the Decider produces: counts for
// logging plus the repair list actually handed to the queue.
type RepairSummary struct {
	SinkAhead int
	Repairs   []replrtq.Entry
}

// Decide partitions divergences into "sink-ahead" (logged only, the
// sink already holds the newer value) and "source-ahead" (requeued for
// re-replication). Every entry lands in exactly one bucket:
// dominates(sink, source) == true means sink-ahead, anything else
// (source-ahead, concurrent, or sink-missing) means a repair.
func Decide(divergences []Divergence) RepairSummary {
	summary := RepairSummary{Repairs: make([]replrtq.Entry, 0)}
	for _, d := range divergences {
		if vclock.Dominates(d.SinkVC, d.SourceVC) {
			summary.SinkAhead++
			continue
		}
		summary.Repairs = append(summary.Repairs, replrtq.Entry{
			Bucket:   d.Bucket,
			Key:      d.Key,
			SourceVC: d.SourceVC,
			ToFetch:  true,
		})
	}
	return summary
}

// Repair runs Decide over divergences and hands the repair list to the
// replication queue sink under queueName, logging counts at start,
// after partitioning, and on completion. Requeueing (rather than
// replicating directly to the sink participating in this exchange)
// funnels the change through the general replication path, fanning it
// out to every destination cluster instead of only this one.
//
// The queue call is best-effort: a failure is logged, not retried here
// — the queue owns its own persistence and retry policy.
func Repair(ctx context.Context, queue replrtq.Queue, queueName string, divergences []Divergence, log *zap.Logger) RepairSummary {
	log.Info("repair decider starting", zap.Int("divergences", len(divergences)))

	summary := Decide(divergences)
	log.Info("repair partition complete",
		zap.Int("sink_ahead", summary.SinkAhead),
		zap.Int("to_requeue", len(summary.Repairs)),
	)

	if len(summary.Repairs) > 0 {
		if err := queue.Enqueue(ctx, queueName, summary.Repairs); err != nil {
			log.Warn("replication queue enqueue failed",
				zap.String("queue", queueName),
				zap.Int("entries", len(summary.Repairs)),
				zap.Error(err),
			)
		}
	}

	log.Info("repair decider complete",
		zap.Int("sink_ahead", summary.SinkAhead),
		zap.Int("requeued", len(summary.Repairs)),
	)
	telemetry.AAESinkAheadTotal.Add(float64(summary.SinkAhead))
	telemetry.AAERepairsQueued.Add(float64(len(summary.Repairs)))
	return summary
}
