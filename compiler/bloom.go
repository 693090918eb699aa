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

import "github.com/cespare/xxhash/v2"

// BloomFilter answers "definitely absent" for static paths before the map
// lookup. False positives fall through to the map; there are no false
// negatives.
type BloomFilter struct {
	bits  []uint64
	size  uint64
	seeds []uint64
}

// NewBloomFilter creates a filter with size bits and numHashFuncs seeds.
func NewBloomFilter(size uint64, numHashFuncs int) *BloomFilter {
	if size == 0 {
		size = 64
	}
	numHashFuncs = max(1, numHashFuncs)
	bf := &BloomFilter{
		bits:  make([]uint64, (size+63)/64),
		size:  size,
		seeds: make([]uint64, numHashFuncs),
	}
	for i := range numHashFuncs {
		//nolint:gosec // G115: numHashFuncs is small, overflow impossible
		bf.seeds[i] = uint64(i+1) * 0x9e3779b97f4a7c15
	}

	return bf
}

func (bf *BloomFilter) position(base, seed uint64) uint64 {
	return (base ^ seed) % bf.size
}

// Add records s in the filter.
func (bf *BloomFilter) Add(s string) {
	base := xxhash.Sum64String(s)
	for _, seed := range bf.seeds {
		pos := bf.position(base, seed)
		bf.bits[pos/64] |= 1 << (pos % 64)
	}
}

// Test reports whether s may have been added.
func (bf *BloomFilter) Test(s string) bool {
	base := xxhash.Sum64String(s)
	for _, seed := range bf.seeds {
		pos := bf.position(base, seed)
		if bf.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}

	return true
}

// optimalBloomSize sizes the filter at ten bits per static path, clamped.
func optimalBloomSize(n int) uint64 {
	//nolint:gosec // G115: n is a non-negative route count
	size := uint64(n * 10)

	return min(max(size, 100), 1_000_000)
}
