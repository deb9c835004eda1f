package kv

import (
	"testing"
	"time"

	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

func TestMetaStore_PutGetDelete(t *testing.T) {
	s := NewMetaStore()
	vc := vclock.Increment(nil, "n1")
	s.Put("b1", "k1", MetaEntry{Value: []byte("v1"), VClock: vc, ModTime: time.Unix(100, 0)})

	e, ok := s.Get("b1", "k1")
	if !ok {
		t.Fatalf("Get(b1,k1) !ok")
	}
	if string(e.Value) != "v1" {
		t.Fatalf("Value = %q, want v1", e.Value)
	}

	if !s.Delete("b1", "k1") {
		t.Fatalf("Delete(b1,k1) = false, want true")
	}
	if _, ok := s.Get("b1", "k1"); ok {
		t.Fatalf("Get after delete still ok")
	}
	if s.Delete("b1", "k1") {
		t.Fatalf("second Delete = true, want false")
	}
}

func TestMetaStore_BucketsAreIsolated(t *testing.T) {
	s := NewMetaStore()
	s.Put("b1", "k", MetaEntry{Value: []byte("in-b1")})
	s.Put("b2", "k", MetaEntry{Value: []byte("in-b2")})

	e1, _ := s.Get("b1", "k")
	e2, _ := s.Get("b2", "k")
	if string(e1.Value) != "in-b1" || string(e2.Value) != "in-b2" {
		t.Fatalf("buckets leaked: b1=%q b2=%q", e1.Value, e2.Value)
	}
}

func TestMetaStore_ScanFiltersByKeyAndModRange(t *testing.T) {
	s := NewMetaStore()
	s.Put("b", "a", MetaEntry{ModTime: time.Unix(10, 0)})
	s.Put("b", "m", MetaEntry{ModTime: time.Unix(50, 0)})
	s.Put("b", "z", MetaEntry{ModTime: time.Unix(90, 0)})

	all := s.Scan("b", false, true, "", "", true, time.Time{}, time.Time{})
	if len(all) != 3 {
		t.Fatalf("Scan(all) = %d items, want 3", len(all))
	}

	byKey := s.Scan("b", false, false, "b", "z", true, time.Time{}, time.Time{})
	if len(byKey) != 1 || byKey[0].Key != "m" {
		t.Fatalf("Scan(key range) = %+v, want just %q", byKey, "m")
	}

	byMod := s.Scan("b", false, true, "", "", false, time.Unix(40, 0), time.Unix(60, 0))
	if len(byMod) != 1 || byMod[0].Key != "m" {
		t.Fatalf("Scan(mod range) = %+v, want just %q", byMod, "m")
	}
}

func TestMetaStore_ScanBucketAllCrossesBucketsWithFilters(t *testing.T) {
	s := NewMetaStore()
	s.Put("b1", "a", MetaEntry{ModTime: time.Unix(10, 0)})
	s.Put("b2", "m", MetaEntry{ModTime: time.Unix(50, 0)})
	s.Put("b2", "z", MetaEntry{ModTime: time.Unix(90, 0)})

	all := s.Scan("", true, true, "", "", true, time.Time{}, time.Time{})
	if len(all) != 3 {
		t.Fatalf("Scan(bucketAll) = %d items, want 3", len(all))
	}

	byMod := s.Scan("", true, true, "", "", false, time.Unix(40, 0), time.Unix(60, 0))
	if len(byMod) != 1 || byMod[0].Key != "m" || byMod[0].Bucket != "b2" {
		t.Fatalf("Scan(bucketAll, mod range) = %+v, want just b2/m", byMod)
	}
}

func TestMetaStore_ScanAllCrossesBuckets(t *testing.T) {
	s := NewMetaStore()
	s.Put("b1", "x", MetaEntry{})
	s.Put("b2", "y", MetaEntry{})
	items := s.ScanAll()
	if got := len(items); got != 2 {
		t.Fatalf("ScanAll() = %d items, want 2", got)
	}
	buckets := map[string]string{}
	for _, it := range items {
		buckets[it.Key] = it.Bucket
	}
	if buckets["x"] != "b1" || buckets["y"] != "b2" {
		t.Fatalf("ScanAll() bucket tagging = %+v, want x->b1, y->b2", buckets)
	}
}

func TestMetaStore_ScanTagsItemsWithBucket(t *testing.T) {
	s := NewMetaStore()
	s.Put("b1", "k", MetaEntry{})
	items := s.Scan("b1", false, true, "", "", true, time.Time{}, time.Time{})
	if len(items) != 1 || items[0].Bucket != "b1" {
		t.Fatalf("Scan() = %+v, want one item tagged Bucket=b1", items)
	}
}
