// Package aaeclient is the HTTP client surface the coordinator
// consumes against a cluster (local or remote) for AAE exchanges. It
// is a thin JSON-over-HTTP capability, not a connection pool: the
// coordinator opens one per exchange and discards it when the
// exchange completes, matching spec §5's "HTTP clients are created
// per-exchange, not pooled".
package aaeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ryandielhenn/zephyrcache/pkg/exchange"
)

// SegmentFilter is the shape the HTTP client expects: either "all" or
// an explicit (segList, treeSize) pair. The engine emits a richer
// shape (exchange.SegmentFilter); AdaptSegmentFilter does the trivial
// rewrite between the two.
type SegmentFilter struct {
	All      bool
	SegList  []int
	TreeSize exchange.TreeSize
}

// AdaptSegmentFilter reshapes the engine's segment filter into the
// shape this HTTP client's range endpoints expect.
func AdaptSegmentFilter(f exchange.SegmentFilter) SegmentFilter {
	if f.All {
		return SegmentFilter{All: true}
	}
	return SegmentFilter{SegList: f.Segments, TreeSize: f.TreeSize}
}

// Client is the six-call HTTP surface consumed against a cluster, per
// spec §6.
type Client interface {
	Ping(ctx context.Context) error
	MergeRoot(ctx context.Context, nval int) (exchange.Root, error)
	MergeBranches(ctx context.Context, nval int, branchIDs []int) ([]exchange.Branch, error)
	FetchClocks(ctx context.Context, nval int, segmentIDs []int) ([]exchange.KeyClock, error)
	RangeTree(ctx context.Context, bucket string, bucketAll bool, keyRange exchange.KeyRange, treeSize exchange.TreeSize, filter SegmentFilter, modRange exchange.ModRange, hashMethod string) (exchange.Tree, error)
	RangeClocks(ctx context.Context, bucket string, bucketAll bool, keyRange exchange.KeyRange, filter SegmentFilter, modRange exchange.ModRange) ([]exchange.KeyClock, error)
}

// HTTPClient implements Client against a zephyrcache node's AAE HTTP
// endpoints (pkg/node's aae_* handlers).
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

// New opens an HTTP client against baseURL with a bounded per-request
// timeout, matching the teacher's cmd/bench client construction.
func New(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("aaeclient: ping %s: %w", c.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aaeclient: ping %s returned status %d", c.BaseURL, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) MergeRoot(ctx context.Context, nval int) (exchange.Root, error) {
	var out exchange.Root
	err := c.getJSON(ctx, fmt.Sprintf("/aae/merge_root?nval=%d", nval), &out)
	return out, err
}

func (c *HTTPClient) MergeBranches(ctx context.Context, nval int, branchIDs []int) ([]exchange.Branch, error) {
	var out []exchange.Branch
	err := c.postJSON(ctx, "/aae/merge_branches", struct {
		NVal      int   `json:"nval"`
		BranchIDs []int `json:"branch_ids"`
	}{nval, branchIDs}, &out)
	return out, err
}

func (c *HTTPClient) FetchClocks(ctx context.Context, nval int, segmentIDs []int) ([]exchange.KeyClock, error) {
	var out []exchange.KeyClock
	err := c.postJSON(ctx, "/aae/fetch_clocks", struct {
		NVal       int   `json:"nval"`
		SegmentIDs []int `json:"segment_ids"`
	}{nval, segmentIDs}, &out)
	return out, err
}

func (c *HTTPClient) RangeTree(ctx context.Context, bucket string, bucketAll bool, keyRange exchange.KeyRange, treeSize exchange.TreeSize, filter SegmentFilter, modRange exchange.ModRange, hashMethod string) (exchange.Tree, error) {
	var out exchange.Tree
	err := c.postJSON(ctx, "/aae/range_tree", struct {
		Bucket     string            `json:"bucket"`
		BucketAll  bool              `json:"bucket_all"`
		KeyRange   exchange.KeyRange `json:"key_range"`
		TreeSize   exchange.TreeSize `json:"tree_size"`
		Filter     SegmentFilter     `json:"filter"`
		ModRange   exchange.ModRange `json:"mod_range"`
		HashMethod string            `json:"hash_method"`
	}{bucket, bucketAll, keyRange, treeSize, filter, modRange, hashMethod}, &out)
	return out, err
}

func (c *HTTPClient) RangeClocks(ctx context.Context, bucket string, bucketAll bool, keyRange exchange.KeyRange, filter SegmentFilter, modRange exchange.ModRange) ([]exchange.KeyClock, error) {
	var out []exchange.KeyClock
	err := c.postJSON(ctx, "/aae/range_clocks", struct {
		Bucket    string            `json:"bucket"`
		BucketAll bool              `json:"bucket_all"`
		KeyRange  exchange.KeyRange `json:"key_range"`
		Filter    SegmentFilter     `json:"filter"`
		ModRange  exchange.ModRange `json:"mod_range"`
	}{bucket, bucketAll, keyRange, filter, modRange}, &out)
	return out, err
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("aaeclient: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("aaeclient: %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
