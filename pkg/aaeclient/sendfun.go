package aaeclient

import (
	"context"

	"github.com/ryandielhenn/zephyrcache/pkg/exchange"
)

// SendFun adapts a Client (bound to one cluster side, with a fixed
// n-val) into the exchange engine's SendFun capability. Each method
// fires its HTTP call in its own goroutine and blocks until that call's
// own result arrives; the local and remote sides of an exchange run
// concurrently only when the engine calls them from separate
// goroutines, as exchange.FakeEngine does.
type SendFun struct {
	Client Client
	NVal   int
}

func NewSendFun(client Client, nval int) *SendFun {
	return &SendFun{Client: client, NVal: nval}
}

func (s *SendFun) FetchRoot(ctx context.Context) (exchange.Root, error) {
	type res struct {
		root exchange.Root
		err  error
	}
	ch := make(chan res, 1)
	go func() {
		root, err := s.Client.MergeRoot(ctx, s.NVal)
		ch <- res{root, err}
	}()
	r := <-ch
	return r.root, r.err
}

func (s *SendFun) FetchBranches(ctx context.Context, branchIDs []int) ([]exchange.Branch, error) {
	type res struct {
		branches []exchange.Branch
		err      error
	}
	ch := make(chan res, 1)
	go func() {
		branches, err := s.Client.MergeBranches(ctx, s.NVal, branchIDs)
		ch <- res{branches, err}
	}()
	r := <-ch
	return r.branches, r.err
}

func (s *SendFun) FetchClocks(ctx context.Context, segmentIDs []int) ([]exchange.KeyClock, error) {
	type res struct {
		clocks []exchange.KeyClock
		err    error
	}
	ch := make(chan res, 1)
	go func() {
		clocks, err := s.Client.FetchClocks(ctx, s.NVal, segmentIDs)
		ch <- res{clocks, err}
	}()
	r := <-ch
	return r.clocks, r.err
}

func (s *SendFun) MergeTreeRange(ctx context.Context, req exchange.RangeTreeRequest) (exchange.Tree, error) {
	type res struct {
		tree exchange.Tree
		err  error
	}
	ch := make(chan res, 1)
	go func() {
		tree, err := s.Client.RangeTree(ctx, req.Bucket, req.BucketAll, req.KeyRange, req.TreeSize, AdaptSegmentFilter(req.Filter), req.ModRange, req.HashMethod)
		ch <- res{tree, err}
	}()
	r := <-ch
	return r.tree, r.err
}

func (s *SendFun) FetchClocksRange(ctx context.Context, req exchange.RangeClocksRequest) ([]exchange.KeyClock, error) {
	type res struct {
		clocks []exchange.KeyClock
		err    error
	}
	ch := make(chan res, 1)
	go func() {
		clocks, err := s.Client.RangeClocks(ctx, req.Bucket, req.BucketAll, req.KeyRange, AdaptSegmentFilter(req.Filter), req.ModRange)
		ch <- res{clocks, err}
	}()
	r := <-ch
	return r.clocks, r.err
}
