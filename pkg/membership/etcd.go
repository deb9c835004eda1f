package membership

import (
	"context"
	"fmt"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ryandielhenn/zephyrcache/discovery"
)

// EtcdOracle resolves UpNodes from the same etcd node registrations
// discovery.RegisterNode maintains: each up node holds a live lease
// under discovery.NodesPrefix, so a crashed or partitioned node's key
// expires and naturally drops out of UpNodes without a separate
// heartbeat path for the coordinator to own.
type EtcdOracle struct {
	client *clientv3.Client
	self   string
}

// NewEtcdOracle wraps an existing etcd client. selfID must match the
// id discovery.RegisterNode was called with for this process.
func NewEtcdOracle(client *clientv3.Client, selfID string) *EtcdOracle {
	return &EtcdOracle{client: client, self: selfID}
}

func (o *EtcdOracle) UpNodes(ctx context.Context) ([]string, error) {
	resp, err := o.client.Get(ctx, discovery.NodesPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("membership: list up-nodes: %w", err)
	}
	nodes := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		nodes = append(nodes, strings.TrimPrefix(string(kv.Key), discovery.NodesPrefix))
	}
	return nodes, nil
}

func (o *EtcdOracle) SelfNode() string { return o.self }
