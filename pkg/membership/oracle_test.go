package membership

import (
	"context"
	"errors"
	"testing"
)

type fakeOracle struct {
	up   []string
	self string
	err  error
}

func (f *fakeOracle) UpNodes(ctx context.Context) ([]string, error) { return f.up, f.err }
func (f *fakeOracle) SelfNode() string                               { return f.self }


func TestResolve_OrdinalIsSortedPosition(t *testing.T) {
	o := &fakeOracle{up: []string{"c", "a", "b"}, self: "b"}

	info, err := Resolve(context.Background(), o)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if info.Ordinal != 2 || info.Count != 3 {
		t.Fatalf("info = %+v, want {Ordinal:2 Count:3}", info)
	}
}

func TestResolve_FirstAndLastInSortOrder(t *testing.T) {
	o := &fakeOracle{up: []string{"node-3", "node-1", "node-2"}, self: "node-1"}
	info, err := Resolve(context.Background(), o)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if info.Ordinal != 1 {
		t.Fatalf("Ordinal = %d, want 1", info.Ordinal)
	}

	o.self = "node-3"
	info, err = Resolve(context.Background(), o)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if info.Ordinal != 3 {
		t.Fatalf("Ordinal = %d, want 3", info.Ordinal)
	}
}

func TestResolve_SelfNotYetInUpNodes(t *testing.T) {
	o := &fakeOracle{up: []string{"a", "b"}, self: "z"}
	info, err := Resolve(context.Background(), o)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if info.Ordinal != 1 || info.Count != 2 {
		t.Fatalf("info = %+v, want {Ordinal:1 Count:2}", info)
	}
}

func TestResolve_EmptyUpNodesFallsBackToSoleNode(t *testing.T) {
	o := &fakeOracle{up: nil, self: "only"}
	info, err := Resolve(context.Background(), o)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if info.Ordinal != 1 || info.Count != 1 {
		t.Fatalf("info = %+v, want {Ordinal:1 Count:1}", info)
	}
}

func TestResolve_PropagatesOracleError(t *testing.T) {
	wantErr := errors.New("etcd unreachable")
	o := &fakeOracle{err: wantErr}
	if _, err := Resolve(context.Background(), o); !errors.Is(err, wantErr) {
		t.Fatalf("Resolve() err = %v, want %v", err, wantErr)
	}
}

func TestAsNodeInfoFunc_AdaptsToAaeNodeInfo(t *testing.T) {
	o := &fakeOracle{up: []string{"a", "b"}, self: "a"}
	fn := AsNodeInfoFunc(o)

	info, err := fn(context.Background())
	if err != nil {
		t.Fatalf("fn() = %v", err)
	}
	if info.Ordinal != 1 || info.Count != 2 {
		t.Fatalf("info = %+v, want {Ordinal:1 Count:2}", info)
	}
}
