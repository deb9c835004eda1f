package membership

import (
	"context"
	"testing"

	"github.com/ryandielhenn/zephyrcache/pkg/gossip"
)

type fakeMemberList struct {
	self    gossip.Member
	members []gossip.Member
}

func (f *fakeMemberList) Self() gossip.Member { return f.self }
func (f *fakeMemberList) All() []gossip.Member { return f.members }
func (f *fakeMemberList) Get(id gossip.NodeID) (gossip.Member, bool) {
	for _, m := range f.members {
		if m.ID == id {
			return m, true
		}
	}
	return gossip.Member{}, false
}
func (f *fakeMemberList) ApplyDelta(d gossip.Delta) bool { return false }
func (f *fakeMemberList) BumpIncarnation() uint64        { return 0 }

func TestGossipOracle_UpNodesOnlyCountsAlive(t *testing.T) {
	self := gossip.Member{ID: "n1", State: gossip.StateAlive}
	ml := &fakeMemberList{
		self: self,
		members: []gossip.Member{
			self,
			{ID: "n2", State: gossip.StateAlive},
			{ID: "n3", State: gossip.StateSuspect},
			{ID: "n4", State: gossip.StateDead},
		},
	}

	o := NewGossipOracle(ml)
	up, err := o.UpNodes(context.Background())
	if err != nil {
		t.Fatalf("UpNodes() = %v", err)
	}
	if len(up) != 2 {
		t.Fatalf("UpNodes() = %v, want 2 alive members", up)
	}
	if o.SelfNode() != "n1" {
		t.Fatalf("SelfNode() = %q, want n1", o.SelfNode())
	}
}

func TestGossipOracle_ResolveTracksAliveSet(t *testing.T) {
	self := gossip.Member{ID: "n2", State: gossip.StateAlive}
	ml := &fakeMemberList{
		self: self,
		members: []gossip.Member{
			{ID: "n1", State: gossip.StateAlive},
			self,
			{ID: "n3", State: gossip.StateDead},
		},
	}

	info, err := Resolve(context.Background(), NewGossipOracle(ml))
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if info.Count != 2 {
		t.Fatalf("Count = %d, want 2 (n3 is dead)", info.Count)
	}
	if info.Ordinal != 2 {
		t.Fatalf("Ordinal = %d, want 2 (n1 < n2 lexically)", info.Ordinal)
	}
}
