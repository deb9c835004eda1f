package exchange

import (
	"context"
	"fmt"
	"sync/atomic"
)

// FakeEngine is an in-memory stand-in for the real segment-descent
// Merkle engine, which this repository treats as an external
// collaborator. The tests use it to exercise the coordinator's exchange
// driver end to end, and cmd/coordinator runs with it as its Engine.
// It skips tree descent entirely
// and just diffs the two sides' key/clock lists — good enough to drive
// the driver's callback wiring and the repair decider, not a model of
// how a real AAE engine minimizes the data it transfers.
type FakeEngine struct {
	counter atomic.Uint64
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{}
}

// Start never blocks: it hands the exchange to a goroutine and
// reports back through opts.OnReply once both sides have answered,
// the same "starts, does not run to completion" contract a real
// segment-descent engine has to honor so its caller's loop stays free
// to service other work while the exchange is in flight.
func (e *FakeEngine) Start(ctx context.Context, opts StartOptions) (ID, error) {
	id := ID(fmt.Sprintf("ex-%d", e.counter.Add(1)))

	req := RangeClocksRequest{BucketAll: true, Filter: SegmentFilter{All: true}, KeyRange: KeyRange{All: true}, ModRange: ModRange{All: true}}
	if opts.Filter != nil {
		req.Bucket = opts.Filter.Bucket
		req.BucketAll = false
		req.KeyRange = opts.Filter.KeyRange
		req.Filter = opts.Filter.Filter
		req.ModRange = opts.Filter.ModRange
	}

	go e.run(ctx, id, opts, req)
	return id, nil
}

// run fetches both sides' key/clock lists concurrently, per
// SendFun's documented contract that the local and remote calls of
// one exchange must not serialize behind each other.
func (e *FakeEngine) run(ctx context.Context, id ID, opts StartOptions, req RangeClocksRequest) {
	type fetched struct {
		clocks []KeyClock
		err    error
	}
	sourceCh := make(chan fetched, 1)
	sinkCh := make(chan fetched, 1)
	go func() {
		clocks, err := opts.Source.FetchClocksRange(ctx, req)
		sourceCh <- fetched{clocks, err}
	}()
	go func() {
		clocks, err := opts.Sink.FetchClocksRange(ctx, req)
		sinkCh <- fetched{clocks, err}
	}()
	source := <-sourceCh
	sink := <-sinkCh

	if source.err != nil {
		if opts.OnReply != nil {
			opts.OnReply.Complete(ctx, Result{ExchangeID: id, Err: source.err})
		}
		return
	}
	if sink.err != nil {
		if opts.OnReply != nil {
			opts.OnReply.Complete(ctx, Result{ExchangeID: id, Err: sink.err})
		}
		return
	}

	divergences := diff(source.clocks, sink.clocks)
	if len(divergences) > 0 && opts.OnRepair != nil {
		if err := opts.OnRepair.Repair(ctx, divergences); err != nil {
			if opts.OnReply != nil {
				opts.OnReply.Complete(ctx, Result{ExchangeID: id, Divergences: len(divergences), Err: err})
			}
			return
		}
	}

	if opts.OnReply != nil {
		opts.OnReply.Complete(ctx, Result{ExchangeID: id, Divergences: len(divergences)})
	}
}

func diff(source, sink []KeyClock) []Divergence {
	sinkByKey := make(map[string]KeyClock, len(sink))
	for _, kc := range sink {
		sinkByKey[kc.Bucket+"/"+kc.Key] = kc
	}

	seen := make(map[string]bool, len(source))
	var out []Divergence
	for _, s := range source {
		k := s.Bucket + "/" + s.Key
		seen[k] = true
		sinkKC, ok := sinkByKey[k]
		if !ok {
			out = append(out, Divergence{Bucket: s.Bucket, Key: s.Key, SourceVC: s.VClock, SinkVC: nil})
			continue
		}
		if !clocksEqual(s.VClock, sinkKC.VClock) {
			out = append(out, Divergence{Bucket: s.Bucket, Key: s.Key, SourceVC: s.VClock, SinkVC: sinkKC.VClock})
		}
	}
	for _, s := range sink {
		k := s.Bucket + "/" + s.Key
		if seen[k] {
			continue
		}
		out = append(out, Divergence{Bucket: s.Bucket, Key: s.Key, SourceVC: nil, SinkVC: s.VClock})
	}
	return out
}

func clocksEqual(a, b map[string]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
