// Package discovery registers this node's address in etcd and
// watches the shared node list so every process in the cluster
// (the KV node binary and the AAE coordinator alike) converges on the
// same peer set.
package discovery

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.etcd.io/etcd/client/v3"
)

// NodesPrefix is the etcd key prefix every cluster node registers
// itself under. pkg/membership's EtcdOracle lists this same prefix so
// the coordinator's up-node view always matches the cluster's.
const NodesPrefix = "/zephyr/nodes/"

func NewClient(endpoints []string) (*clientv3.Client, error) {
	return clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
}

// RegisterNode grants a ttl-second lease, publishes addr under
// NodesPrefix+id, and keeps the lease alive until the returned cancel
// func is called.
func RegisterNode(cli *clientv3.Client, id, addr string, ttl int64) (clientv3.LeaseID, context.CancelFunc, error) {
	lease, err := cli.Grant(context.TODO(), ttl)
	if err != nil {
		return 0, nil, err
	}
	key := fmt.Sprintf("%s%s", NodesPrefix, id)
	if _, err = cli.Put(context.TODO(), key, addr, clientv3.WithLease(lease.ID)); err != nil {
		return 0, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := cli.KeepAlive(ctx, lease.ID)
	if err != nil {
		cancel()
		return 0, nil, err
	}
	go func() {
		for range ch {
		}
	}()

	return lease.ID, cancel, nil
}

// GetPeers lists the current node set under NodesPrefix.
func GetPeers(cli *clientv3.Client) (map[string]string, error) {
	resp, err := cli.Get(context.TODO(), NodesPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	peers := make(map[string]string, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		id := strings.TrimPrefix(string(kv.Key), NodesPrefix)
		peers[id] = string(kv.Value)
	}
	return peers, nil
}

// WatchPeers calls onUpdate with the full current peer set, once
// immediately and again after every create/modify/delete under
// NodesPrefix, so callers can always replace their local view wholesale
// rather than reconcile individual deltas.
func WatchPeers(cli *clientv3.Client, onUpdate func(peers map[string]string)) {
	if peers, err := GetPeers(cli); err == nil {
		onUpdate(peers)
	} else {
		log.Printf("[WatchPeers] initial GetPeers failed: %v", err)
	}

	watchCh := cli.Watch(context.Background(), NodesPrefix, clientv3.WithPrefix())
	go func() {
		for range watchCh {
			peers, err := GetPeers(cli)
			if err != nil {
				log.Printf("[WatchPeers] GetPeers failed: %v", err)
				continue
			}
			onUpdate(peers)
		}
	}()
}
