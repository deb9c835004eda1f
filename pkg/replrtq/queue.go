// Package replrtq is the sink the repair decider hands locally-dominant
// keys to for re-replication. The coordinator only appends; the queue
// owns its own persistence, fan-out to destination clusters, and retry
// policy.
package replrtq

import (
	"context"

	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

// Entry is one key queued for re-replication: the source's vector
// clock travels with it so the eventual fetch can detect staleness.
type Entry struct {
	Bucket   string
	Key      string
	SourceVC vclock.Clock
	ToFetch  bool
}

// Queue is the replication-queue sink capability: enqueue(queueName,
// entries) from spec §6.
type Queue interface {
	Enqueue(ctx context.Context, queueName string, entries []Entry) error
}
