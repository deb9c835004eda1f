package node

import (
	"encoding/json"
	"hash/fnv"
	"net/http"
	"sort"
	"time"

	"github.com/ryandielhenn/zephyrcache/pkg/exchange"
	"github.com/ryandielhenn/zephyrcache/pkg/kv"
	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

// PutMeta writes a bucket-scoped AAE item with its vector clock and
// modification time, the fixture-side counterpart to the coordinator's
// exchange.KeyClock wire type.
func (n *Node) PutMeta(bucket, key string, value []byte, vc vclock.Clock, modTime time.Time) {
	n.meta.Put(bucket, key, kv.MetaEntry{Value: value, VClock: vc, ModTime: modTime})
}

// GetMeta and DeleteMeta round out the AAE fixture's read/write surface
// that PutMeta writes into.
func (n *Node) GetMeta(bucket, key string) (kv.MetaEntry, bool) {
	return n.meta.Get(bucket, key)
}

func (n *Node) DeleteMeta(bucket, key string) bool {
	return n.meta.Delete(bucket, key)
}

// segmentCount scales segment granularity with TreeSize, the same
// small/medium/large split the exchange driver uses to pick a tree for
// hour/day/all-sync windows.
func segmentCount(size exchange.TreeSize) int {
	switch size {
	case exchange.TreeSizeSmall:
		return 16
	case exchange.TreeSizeMedium:
		return 64
	default:
		return 256
	}
}

func segmentFor(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// buildTree groups items into TreeSize-many segments and hashes each
// segment's sorted (key, clock) pairs, the minimal structure that lets
// two sides detect a mismatched segment without comparing every key.
func buildTree(items []kv.ScanItem, size exchange.TreeSize) exchange.Tree {
	n := segmentCount(size)
	byseg := make(map[int][]kv.ScanItem, n)
	for _, it := range items {
		seg := segmentFor(it.Key, n)
		byseg[seg] = append(byseg[seg], it)
	}

	hashes := make(map[int][]byte, len(byseg))
	for seg, its := range byseg {
		sort.Slice(its, func(i, j int) bool { return its[i].Key < its[j].Key })
		h := fnv.New64a()
		for _, it := range its {
			_, _ = h.Write([]byte(it.Key))
			enc, _ := vclock.Encode(it.VClock)
			_, _ = h.Write(enc)
		}
		hashes[seg] = h.Sum(nil)
	}
	return exchange.Tree{SegmentHashes: hashes}
}

func mergeRoot(tree exchange.Tree) exchange.Root {
	ids := make([]int, 0, len(tree.SegmentHashes))
	for id := range tree.SegmentHashes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	h := fnv.New64a()
	for _, id := range ids {
		_, _ = h.Write(tree.SegmentHashes[id])
	}
	return exchange.Root(h.Sum(nil))
}

func mergeBranches(tree exchange.Tree, branchIDs []int) []exchange.Branch {
	out := make([]exchange.Branch, 0, len(branchIDs))
	for _, id := range branchIDs {
		out = append(out, exchange.Branch{ID: id, Hash: tree.SegmentHashes[id]})
	}
	return out
}

func toKeyClocks(items []kv.ScanItem) []exchange.KeyClock {
	out := make([]exchange.KeyClock, 0, len(items))
	for _, it := range items {
		out = append(out, exchange.KeyClock{Bucket: it.Bucket, Key: it.Key, VClock: it.VClock})
	}
	return out
}

// AAEMergeRoot implements GET /aae/merge_root?nval=N: the whole-cluster
// root over this node's entire meta store, matching Scope All's "no
// bucket filter" exchanges.
func (n *Node) AAEMergeRoot(w http.ResponseWriter, r *http.Request) {
	items := n.meta.ScanAll()
	tree := buildTree(items, exchange.TreeSizeLarge)
	writeJSON(w, mergeRoot(tree))
}

// AAEMergeBranches implements POST /aae/merge_branches.
func (n *Node) AAEMergeBranches(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NVal      int   `json:"nval"`
		BranchIDs []int `json:"branch_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tree := buildTree(n.meta.ScanAll(), exchange.TreeSizeLarge)
	writeJSON(w, mergeBranches(tree, req.BranchIDs))
}

// AAEFetchClocks implements POST /aae/fetch_clocks.
func (n *Node) AAEFetchClocks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NVal       int   `json:"nval"`
		SegmentIDs []int `json:"segment_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	wanted := make(map[int]bool, len(req.SegmentIDs))
	for _, id := range req.SegmentIDs {
		wanted[id] = true
	}
	segN := segmentCount(exchange.TreeSizeLarge)

	var out []exchange.KeyClock
	for _, it := range n.meta.ScanAll() {
		if wanted[segmentFor(it.Key, segN)] {
			out = append(out, exchange.KeyClock{Bucket: it.Bucket, Key: it.Key, VClock: it.VClock})
		}
	}
	writeJSON(w, out)
}

type rangeTreeBody struct {
	Bucket     string            `json:"bucket"`
	BucketAll  bool              `json:"bucket_all"`
	KeyRange   exchange.KeyRange `json:"key_range"`
	TreeSize   exchange.TreeSize `json:"tree_size"`
	Filter     aaeSegmentFilter  `json:"filter"`
	ModRange   exchange.ModRange `json:"mod_range"`
	HashMethod string            `json:"hash_method"`
}

// aaeSegmentFilter mirrors aaeclient.SegmentFilter's wire shape so this
// handler can decode requests from aaeclient.HTTPClient without
// importing that package (it already imports this one's sibling,
// exchange, only).
type aaeSegmentFilter struct {
	All      bool              `json:"All"`
	SegList  []int             `json:"SegList"`
	TreeSize exchange.TreeSize `json:"TreeSize"`
}

// AAERangeTree implements POST /aae/range_tree: the bucket-scoped
// segment tree a HourSync/DaySync/AllSync exchange under Scope Bucket
// compares against the other side's tree for the same range, or the
// whole-store tree when BucketAll is set for a Scope All exchange.
func (n *Node) AAERangeTree(w http.ResponseWriter, r *http.Request) {
	var req rangeTreeBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	items := n.meta.Scan(req.Bucket, req.BucketAll, req.KeyRange.All, req.KeyRange.From, req.KeyRange.To,
		req.ModRange.All, req.ModRange.From, req.ModRange.To)
	writeJSON(w, buildTree(items, req.TreeSize))
}

type rangeClocksBody struct {
	Bucket    string            `json:"bucket"`
	BucketAll bool              `json:"bucket_all"`
	KeyRange  exchange.KeyRange `json:"key_range"`
	Filter    aaeSegmentFilter  `json:"filter"`
	ModRange  exchange.ModRange `json:"mod_range"`
}

// AAERangeClocks implements POST /aae/range_clocks: the bucket-scoped
// (or, with BucketAll, whole-store) key/clock list the fake (and,
// eventually, a real) engine diffs directly when it skips tree
// descent.
func (n *Node) AAERangeClocks(w http.ResponseWriter, r *http.Request) {
	var req rangeClocksBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	items := n.meta.Scan(req.Bucket, req.BucketAll, req.KeyRange.All, req.KeyRange.From, req.KeyRange.To,
		req.ModRange.All, req.ModRange.From, req.ModRange.To)
	writeJSON(w, toKeyClocks(items))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
