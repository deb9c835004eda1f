package aae

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/ryandielhenn/zephyrcache/pkg/replrtq"
	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

func TestDecide_SinkAheadIsLoggedNotRequeued(t *testing.T) {
	src := vclock.Clock{"n1": 1}
	sink := vclock.Clock{"n1": 2}
	if !vclock.Dominates(sink, src) {
		t.Fatal("precondition: sink should dominate src")
	}

	summary := Decide([]Divergence{{Bucket: "b", Key: "k", SourceVC: src, SinkVC: sink}})
	if summary.SinkAhead != 1 {
		t.Fatalf("SinkAhead = %d, want 1", summary.SinkAhead)
	}
	if len(summary.Repairs) != 0 {
		t.Fatalf("Repairs = %v, want empty", summary.Repairs)
	}
}

func TestDecide_SourceAheadIsRequeued(t *testing.T) {
	src := vclock.Clock{"n1": 3}
	sink := vclock.Clock{"n1": 1}

	summary := Decide([]Divergence{{Bucket: "b", Key: "k", SourceVC: src, SinkVC: sink}})
	if summary.SinkAhead != 0 {
		t.Fatalf("SinkAhead = %d, want 0", summary.SinkAhead)
	}
	if len(summary.Repairs) != 1 {
		t.Fatalf("Repairs = %v, want 1 entry", summary.Repairs)
	}
	if summary.Repairs[0].Key != "k" || summary.Repairs[0].Bucket != "b" {
		t.Fatalf("Repairs[0] = %+v, want bucket=b key=k", summary.Repairs[0])
	}
}

func TestDecide_ConcurrentIsRequeued(t *testing.T) {
	src := vclock.Clock{"n1": 2, "n2": 0}
	sink := vclock.Clock{"n1": 0, "n2": 2}

	summary := Decide([]Divergence{{Bucket: "b", Key: "k", SourceVC: src, SinkVC: sink}})
	if summary.SinkAhead != 0 || len(summary.Repairs) != 1 {
		t.Fatalf("concurrent clocks should be treated as source-ahead: %+v", summary)
	}
}

func TestDecide_MissingSinkIsRequeued(t *testing.T) {
	src := vclock.Clock{"n1": 1}
	summary := Decide([]Divergence{{Bucket: "b", Key: "k", SourceVC: src, SinkVC: nil}})
	if summary.SinkAhead != 0 || len(summary.Repairs) != 1 {
		t.Fatalf("missing sink clock should be source-ahead: %+v", summary)
	}
}

func TestDecide_MissingSourceIsSinkAhead(t *testing.T) {
	sink := vclock.Clock{"n1": 1}
	summary := Decide([]Divergence{{Bucket: "b", Key: "k", SourceVC: nil, SinkVC: sink}})
	if summary.SinkAhead != 1 || len(summary.Repairs) != 0 {
		t.Fatalf("missing source clock with present sink should be sink-ahead: %+v", summary)
	}
}

func TestDecide_BothMissingIsSinkAhead(t *testing.T) {
	summary := Decide([]Divergence{{Bucket: "b", Key: "k", SourceVC: nil, SinkVC: nil}})
	if summary.SinkAhead != 1 || len(summary.Repairs) != 0 {
		t.Fatalf("both clocks missing should be sink-ahead: %+v", summary)
	}
}

func TestDecide_PartitionSoundness(t *testing.T) {
	in := []Divergence{
		{Bucket: "b", Key: "k1", SourceVC: vclock.Clock{"n1": 1}, SinkVC: vclock.Clock{"n1": 2}}, // sink ahead
		{Bucket: "b", Key: "k2", SourceVC: vclock.Clock{"n1": 2}, SinkVC: vclock.Clock{"n1": 1}}, // source ahead
		{Bucket: "b", Key: "k3", SourceVC: vclock.Clock{"n1": 1}, SinkVC: vclock.Clock{"n2": 1}}, // concurrent
	}
	summary := Decide(in)
	if summary.SinkAhead != 1 {
		t.Fatalf("SinkAhead = %d, want 1", summary.SinkAhead)
	}
	if len(summary.Repairs) != 2 {
		t.Fatalf("Repairs = %d, want 2", len(summary.Repairs))
	}
	for _, r := range summary.Repairs {
		if r.Key == "k1" {
			t.Fatal("sink-ahead key k1 must not appear in repair list")
		}
	}
}

func TestRepair_EnqueuesToConfiguredQueue(t *testing.T) {
	q := replrtq.NewMemoryQueue(100)
	divergences := []Divergence{
		{Bucket: "b", Key: "k1", SourceVC: vclock.Clock{"n1": 2}, SinkVC: vclock.Clock{"n1": 1}},
	}

	summary := Repair(context.Background(), q, "repl-q", divergences, zap.NewNop())
	if len(summary.Repairs) != 1 {
		t.Fatalf("Repairs = %d, want 1", len(summary.Repairs))
	}

	drained := q.Drain("repl-q", 10)
	if len(drained) != 1 || drained[0].Key != "k1" {
		t.Fatalf("drained = %+v, want 1 entry for k1", drained)
	}
}
