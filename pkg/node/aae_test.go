package node

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ryandielhenn/zephyrcache/pkg/exchange"
	"github.com/ryandielhenn/zephyrcache/pkg/kv"
	"github.com/ryandielhenn/zephyrcache/pkg/ring"
	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

func newTestNode() *Node {
	return NewNode(kv.NewStore(1<<20), ring.New(8, nil), "test:8080")
}

func TestAAERangeClocks_ReturnsBucketScopedItems(t *testing.T) {
	n := newTestNode()
	n.PutMeta("b1", "k1", []byte("v1"), vclock.Increment(nil, "a"), time.Now())
	n.PutMeta("b1", "k2", []byte("v2"), vclock.Increment(nil, "a"), time.Now())
	n.PutMeta("b2", "k1", []byte("other"), vclock.Increment(nil, "a"), time.Now())

	body, _ := json.Marshal(rangeClocksBody{
		Bucket:   "b1",
		KeyRange: exchange.KeyRange{All: true},
		ModRange: exchange.ModRange{All: true},
		Filter:   aaeSegmentFilter{All: true},
	})
	req := httptest.NewRequest(http.MethodPost, "/aae/range_clocks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	n.AAERangeClocks(rec, req)

	var out []exchange.KeyClock
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("RangeClocks = %d items, want 2 (bucket b1 only)", len(out))
	}
}

func TestAAERangeClocks_BucketAllCrossesBuckets(t *testing.T) {
	n := newTestNode()
	n.PutMeta("b1", "k1", []byte("v1"), vclock.Increment(nil, "a"), time.Now())
	n.PutMeta("b2", "k1", []byte("v2"), vclock.Increment(nil, "a"), time.Now())

	body, _ := json.Marshal(rangeClocksBody{
		BucketAll: true,
		KeyRange:  exchange.KeyRange{All: true},
		ModRange:  exchange.ModRange{All: true},
		Filter:    aaeSegmentFilter{All: true},
	})
	req := httptest.NewRequest(http.MethodPost, "/aae/range_clocks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	n.AAERangeClocks(rec, req)

	var out []exchange.KeyClock
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("RangeClocks(bucketAll) = %d items, want 2", len(out))
	}
}

func TestAAEFetchClocks_PopulatesBucketAcrossScanAll(t *testing.T) {
	n := newTestNode()
	n.PutMeta("b1", "k1", []byte("v1"), vclock.Increment(nil, "a"), time.Now())
	n.PutMeta("b2", "k1", []byte("v2"), vclock.Increment(nil, "a"), time.Now())

	allSegments := make([]int, segmentCount(exchange.TreeSizeLarge))
	for i := range allSegments {
		allSegments[i] = i
	}
	body, _ := json.Marshal(struct {
		NVal       int   `json:"nval"`
		SegmentIDs []int `json:"segment_ids"`
	}{NVal: 3, SegmentIDs: allSegments})

	req := httptest.NewRequest(http.MethodPost, "/aae/fetch_clocks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	n.AAEFetchClocks(rec, req)

	var out []exchange.KeyClock
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("FetchClocks = %d items, want 2", len(out))
	}
	buckets := map[string]bool{}
	for _, kc := range out {
		if kc.Bucket == "" {
			t.Fatalf("FetchClocks item %+v has empty Bucket, want b1 or b2", kc)
		}
		buckets[kc.Bucket] = true
	}
	if !buckets["b1"] || !buckets["b2"] {
		t.Fatalf("FetchClocks buckets = %v, want both b1 and b2", buckets)
	}
}

func TestAAERangeTree_SameDataProducesSameRoot(t *testing.T) {
	n1 := newTestNode()
	n2 := newTestNode()
	vc := vclock.Increment(nil, "a")
	n1.PutMeta("b", "k1", []byte("v"), vc, time.Unix(0, 0))
	n2.PutMeta("b", "k1", []byte("v"), vc, time.Unix(0, 0))

	body, _ := json.Marshal(rangeTreeBody{
		Bucket:   "b",
		KeyRange: exchange.KeyRange{All: true},
		TreeSize: exchange.TreeSizeSmall,
		ModRange: exchange.ModRange{All: true},
		Filter:   aaeSegmentFilter{All: true},
	})

	tree1 := rangeTree(t, n1, body)
	tree2 := rangeTree(t, n2, body)

	if mergeRootHex(tree1) != mergeRootHex(tree2) {
		t.Fatalf("roots diverged for identical data")
	}
}

func TestAAERangeTree_DivergentDataProducesDifferentRoot(t *testing.T) {
	n1 := newTestNode()
	n2 := newTestNode()
	n1.PutMeta("b", "k1", []byte("v"), vclock.Increment(nil, "a"), time.Unix(0, 0))
	n2.PutMeta("b", "k1", []byte("v"), vclock.Increment(nil, "b"), time.Unix(0, 0))

	body, _ := json.Marshal(rangeTreeBody{
		Bucket:   "b",
		KeyRange: exchange.KeyRange{All: true},
		TreeSize: exchange.TreeSizeSmall,
		ModRange: exchange.ModRange{All: true},
		Filter:   aaeSegmentFilter{All: true},
	})

	tree1 := rangeTree(t, n1, body)
	tree2 := rangeTree(t, n2, body)

	if mergeRootHex(tree1) == mergeRootHex(tree2) {
		t.Fatalf("expected divergent roots for different clocks")
	}
}

func TestAAEMergeRoot_EmptyStoreIsStable(t *testing.T) {
	n := newTestNode()
	req := httptest.NewRequest(http.MethodGet, "/aae/merge_root?nval=3", nil)
	rec := httptest.NewRecorder()
	n.AAEMergeRoot(rec, req)

	var root1, root2 exchange.Root
	_ = json.Unmarshal(rec.Body.Bytes(), &root1)

	rec2 := httptest.NewRecorder()
	n.AAEMergeRoot(rec2, req)
	_ = json.Unmarshal(rec2.Body.Bytes(), &root2)

	if string(root1) != string(root2) {
		t.Fatalf("merge_root not stable across calls with no writes")
	}
}

func rangeTree(t *testing.T, n *Node, body []byte) exchange.Tree {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/aae/range_tree", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	n.AAERangeTree(rec, req)
	var tree exchange.Tree
	if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	return tree
}

func mergeRootHex(tree exchange.Tree) string {
	return string(mergeRoot(tree))
}
