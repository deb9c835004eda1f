package kv

import (
	"sync"
	"time"

	"github.com/ryandielhenn/zephyrcache/pkg/vclock"
)

// MetaEntry is one bucket-scoped item carrying the vector clock and
// modification time the AAE tree/clock endpoints compare on. It is
// tracked separately from Store's byte-capacity LRU cache: AAE fixture
// data is meant to stay put for the duration of an exchange, not get
// evicted under memory pressure from unrelated cache traffic.
type MetaEntry struct {
	Value   []byte
	VClock  vclock.Clock
	ModTime time.Time
}

// ScanItem is one (bucket, key, clock, modTime) tuple returned by Scan
// and ScanAll, value omitted since AAE only ever compares clocks.
type ScanItem struct {
	Bucket  string
	Key     string
	VClock  vclock.Clock
	ModTime time.Time
}

// MetaStore is a bucket-partitioned map of MetaEntry, guarded by a
// single RWMutex the same way Store guards its LRU list.
type MetaStore struct {
	mu   sync.RWMutex
	data map[string]map[string]MetaEntry
}

func NewMetaStore() *MetaStore {
	return &MetaStore{data: make(map[string]map[string]MetaEntry)}
}

func (s *MetaStore) Put(bucket, key string, e MetaEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[bucket]
	if !ok {
		b = make(map[string]MetaEntry)
		s.data[bucket] = b
	}
	b[key] = e
}

func (s *MetaStore) Get(bucket, key string) (MetaEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[bucket]
	if !ok {
		return MetaEntry{}, false
	}
	e, ok := b[key]
	return e, ok
}

func (s *MetaStore) Delete(bucket, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[bucket]
	if !ok {
		return false
	}
	if _, ok := b[key]; !ok {
		return false
	}
	delete(b, key)
	return true
}

// Scan returns every item in bucket, restricted to [keyFrom, keyTo) and
// [modFrom, modTo] when keyAll/modAll are false. Both ranges default to
// unbounded, matching exchange.KeyRange/ModRange's "All" flag.
//
// bucketAll widens the scan across every bucket, ignoring bucket
// entirely, for Scope All's whole-cluster comparisons: those exchanges
// carry no bucket name to filter on, and an empty string is not a
// stand-in for "every bucket" since a bucket literally named "" would
// otherwise be indistinguishable from "no filter."
func (s *MetaStore) Scan(bucket string, bucketAll bool, keyAll bool, keyFrom, keyTo string, modAll bool, modFrom, modTo time.Time) []ScanItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := map[string]map[string]MetaEntry{bucket: s.data[bucket]}
	if bucketAll {
		buckets = s.data
	}

	var out []ScanItem
	for b, entries := range buckets {
		for k, e := range entries {
			if !keyAll && (k < keyFrom || k >= keyTo) {
				continue
			}
			if !modAll && (e.ModTime.Before(modFrom) || e.ModTime.After(modTo)) {
				continue
			}
			out = append(out, ScanItem{Bucket: b, Key: k, VClock: e.VClock, ModTime: e.ModTime})
		}
	}
	return out
}

// ScanAll returns every item across every bucket, used by the whole-
// cluster n-val comparison path where AAE ignores bucket boundaries.
func (s *MetaStore) ScanAll() []ScanItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ScanItem
	for bucket, b := range s.data {
		for k, e := range b {
			out = append(out, ScanItem{Bucket: bucket, Key: k, VClock: e.VClock, ModTime: e.ModTime})
		}
	}
	return out
}
