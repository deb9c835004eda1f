package membership

import (
	"context"

	"github.com/ryandielhenn/zephyrcache/pkg/gossip"
)

// GossipOracle resolves UpNodes from the teacher's gossip.MemberList:
// every member whose last-known State is StateAlive counts as up.
// Suspect and Dead members drop out the same dispatch cycle gossip
// marks them down, with no separate heartbeat path for the
// coordinator to maintain.
type GossipOracle struct {
	members gossip.MemberList
}

// NewGossipOracle wraps a running MemberList.
func NewGossipOracle(members gossip.MemberList) *GossipOracle {
	return &GossipOracle{members: members}
}

func (o *GossipOracle) UpNodes(ctx context.Context) ([]string, error) {
	all := o.members.All()
	up := make([]string, 0, len(all))
	for _, m := range all {
		if m.State == gossip.StateAlive {
			up = append(up, string(m.ID))
		}
	}
	return up, nil
}

func (o *GossipOracle) SelfNode() string {
	return string(o.members.Self().ID)
}
