package testcluster

import (
	"net/http"
	"testing"
)

func TestNewSide_HealthzRespondsOK(t *testing.T) {
	side := NewSide("local")
	defer side.Close()

	resp, err := http.Get(side.BaseURL() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSide_PutIsVisibleThroughGetMeta(t *testing.T) {
	side := NewSide("local")
	defer side.Close()

	side.Put("b1", "k1", []byte("v1"), "actor")
	e, ok := side.Node.GetMeta("b1", "k1")
	if !ok {
		t.Fatal("GetMeta after Put: not found")
	}
	if string(e.Value) != "v1" {
		t.Fatalf("Value = %q, want v1", e.Value)
	}
	if e.VClock["actor"] != 1 {
		t.Fatalf("VClock = %+v, want actor:1", e.VClock)
	}
}

func TestNewCluster_BothSidesIndependentlyAddressable(t *testing.T) {
	c := NewCluster()
	defer c.Close()

	if c.Local.BaseURL() == c.Remote.BaseURL() {
		t.Fatal("local and remote sides share an address")
	}
}
