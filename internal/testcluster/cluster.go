// Package testcluster builds an in-process, two-node AAE-speaking
// cluster fixture over httptest.Server, letting internal/aae exercise
// the exchange driver and repair decider against the real HTTP wire
// protocol (pkg/node's aae_* handlers and pkg/aaeclient's HTTPClient)
// without a live etcd or gossip deployment.
package testcluster

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/ryandielhenn/zephyrcache/internal/telemetry"
	"github.com/ryandielhenn/zephyrcache/pkg/kv"
	"github.com/ryandielhenn/zephyrcache/pkg/node"
	"github.com/ryandielhenn/zephyrcache/pkg/ring"
	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

// Side is one running fixture node: the httptest.Server a coordinator's
// aaeclient.HTTPClient talks to, plus the Node it fronts for direct
// fixture setup (PutMeta) in tests.
type Side struct {
	Node   *node.Node
	Server *httptest.Server
}

// NewSide boots one fixture node listening on an ephemeral local port,
// mounting the same AAE endpoints cmd/server mounts in production.
func NewSide(addr string) *Side {
	store := kv.NewStore(1 << 20)
	r := ring.New(8, ring.FNV32a)
	n := node.NewNode(store, r, addr)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", n.Healthz)
	mux.HandleFunc("/info", n.Info)
	mux.Handle("/metrics", telemetry.MetricsHandler())
	mux.Handle("/aae/merge_root", http.HandlerFunc(n.AAEMergeRoot))
	mux.Handle("/aae/merge_branches", http.HandlerFunc(n.AAEMergeBranches))
	mux.Handle("/aae/fetch_clocks", http.HandlerFunc(n.AAEFetchClocks))
	mux.Handle("/aae/range_tree", http.HandlerFunc(n.AAERangeTree))
	mux.Handle("/aae/range_clocks", http.HandlerFunc(n.AAERangeClocks))

	return &Side{Node: n, Server: httptest.NewServer(mux)}
}

// Close shuts down the underlying httptest.Server.
func (s *Side) Close() {
	s.Server.Close()
}

// BaseURL is the address an aaeclient.HTTPClient should dial.
func (s *Side) BaseURL() string {
	return s.Server.URL
}

// Put writes one bucket-scoped item with a vector clock bumped for
// actor, the common case in tests that just need "a value with some
// clock", without the caller constructing a vclock.Clock by hand.
func (s *Side) Put(bucket, key string, value []byte, actor string) {
	s.Node.PutMeta(bucket, key, value, vclock.Increment(nil, actor), time.Now())
}

// Cluster is a pair of Sides standing in for the coordinator's local
// and remote endpoints.
type Cluster struct {
	Local  *Side
	Remote *Side
}

// NewCluster boots both sides of a fixture cluster.
func NewCluster() *Cluster {
	return &Cluster{Local: NewSide("local"), Remote: NewSide("remote")}
}

// Close shuts both sides down.
func (c *Cluster) Close() {
	c.Local.Close()
	c.Remote.Close()
}
