// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import (
	"slices"
	"sync/atomic"
)

// bloomThreshold is the static route count below which the bloom filter
// costs more than the map lookup it guards.
const bloomThreshold = 10

// Entry is a dynamic pattern filed in a segment bucket.
type Entry struct {
	Pattern *Pattern
	Slot    int
}

// Conflict describes an index entry replaced by a later registration.
type Conflict struct {
	Path     string // static path or regex source
	Bucket   int    // segment bucket; -1 for static paths
	Previous int
	Current  int
}

// Table holds the static and dynamic indices. Values are slots into the
// caller's route arena.
//
// A Table is mutated only during the build phase. After [Table.Freeze] it is
// safe for unsynchronized concurrent reads.
type Table struct {
	static  map[string]int
	dynamic map[int][]*Entry
	bloom   *BloomFilter
	frozen  atomic.Bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		static:  make(map[string]int, 64),
		dynamic: make(map[int][]*Entry, 8),
	}
}

// AddStatic files a static path. A previously registered path is
// overwritten and reported as a conflict.
func (t *Table) AddStatic(path string, slot int) (Conflict, bool) {
	t.mustNotBeFrozen()
	prev, exists := t.static[path]
	t.static[path] = slot
	if !exists {
		return Conflict{}, false
	}

	return Conflict{Path: path, Bucket: -1, Previous: prev, Current: slot}, true
}

// AddDynamic files p under every segment count from its reduced to its full
// count. Within a bucket an entry with the same regex source is replaced in
// place; otherwise the entry is appended.
func (t *Table) AddDynamic(p *Pattern, slot int) []Conflict {
	t.mustNotBeFrozen()
	var conflicts []Conflict
	for n := p.ReducedSegments; n <= p.FullSegments; n++ {
		bucket := t.dynamic[n]
		i := slices.IndexFunc(bucket, func(e *Entry) bool { return e.Pattern.Source == p.Source })
		if i < 0 {
			t.dynamic[n] = append(bucket, &Entry{Pattern: p, Slot: slot})
			continue
		}
		conflicts = append(conflicts, Conflict{
			Path:     p.Source,
			Bucket:   n,
			Previous: bucket[i].Slot,
			Current:  slot,
		})
		bucket[i] = &Entry{Pattern: p, Slot: slot}
	}

	return conflicts
}

// Freeze ends the build phase and sizes the static bloom filter.
func (t *Table) Freeze() {
	if t.frozen.Load() {
		return
	}
	if len(t.static) >= bloomThreshold {
		bf := NewBloomFilter(optimalBloomSize(len(t.static)), 3)
		for path := range t.static {
			bf.Add(path)
		}
		t.bloom = bf
	}
	t.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (t *Table) Frozen() bool {
	return t.frozen.Load()
}

// LookupStatic returns the slot registered for an exact path.
func (t *Table) LookupStatic(path string) (int, bool) {
	if t.bloom != nil && !t.bloom.Test(path) {
		return 0, false
	}
	slot, ok := t.static[path]

	return slot, ok
}

// MatchDynamic scans the bucket for the path's segment count in order and
// returns the first matching entry with its captures.
func (t *Table) MatchDynamic(path string) (int, map[string]string, bool) {
	for _, e := range t.dynamic[SegmentCount(path)] {
		if captures, ok := e.Pattern.Match(path); ok {
			return e.Slot, captures, true
		}
	}

	return 0, nil, false
}

// Stats summarizes table contents.
type Stats struct {
	Static  int
	Dynamic int         // distinct dynamic entries across buckets
	Buckets map[int]int // bucket segment count -> entries
}

// Stats returns the current table sizes.
func (t *Table) Stats() Stats {
	s := Stats{Static: len(t.static), Buckets: make(map[int]int, len(t.dynamic))}
	seen := make(map[*Pattern]struct{})
	for n, bucket := range t.dynamic {
		s.Buckets[n] = len(bucket)
		for _, e := range bucket {
			seen[e.Pattern] = struct{}{}
		}
	}
	s.Dynamic = len(seen)

	return s
}

func (t *Table) mustNotBeFrozen() {
	if t.frozen.Load() {
		panic("compiler: table modified after Freeze")
	}
}
