package shard

import (
	"hash/maphash"
	"math/bits"
	"runtime"

	"github.com/cespare/xxhash/v2"
)

const (
	// MaxShards caps the partition count.
	MaxShards = 1024

	// shardsPerCPU over-partitions relative to parallelism so that two busy
	// workers rarely land on the same lock.
	shardsPerCPU = 4
)

// DefaultCount returns the shard count derived from hardware concurrency:
// GOMAXPROCS times four, rounded up to a power of two.
func DefaultCount() int {
	return normalize(runtime.GOMAXPROCS(0) * shardsPerCPU)
}

// Dispatcher routes keys onto a fixed set of shards.
//
// Contract:
//   - Determinism: For returns the same index for equal keys for the
//     lifetime of the Dispatcher.
//   - Concurrency: safe for concurrent use; For has no side effects.
//   - Ownership: the count is fixed; changing it means building a new
//     Dispatcher (and a new cache on top of it).
type Dispatcher[K comparable] struct {
	mask uint64
	seed maphash.Seed
}

// NewDispatcher creates a dispatcher with n shards. n <= 0 selects
// DefaultCount. Counts are rounded up to a power of two and capped at
// MaxShards.
func NewDispatcher[K comparable](n int) *Dispatcher[K] {
	if n <= 0 {
		n = DefaultCount()
	}
	n = normalize(n)
	return &Dispatcher[K]{
		mask: uint64(n - 1),
		seed: maphash.MakeSeed(),
	}
}

// Count returns the number of shards.
func (d *Dispatcher[K]) Count() int {
	return int(d.mask + 1)
}

// For returns the shard index for key.
func (d *Dispatcher[K]) For(key K) int {
	return int(d.Hash(key) & d.mask)
}

// Hash returns the 64-bit routing hash for key.
//
// String keys hash with xxhash, which is stable across processes; other
// comparable keys use maphash with the dispatcher's seed.
func (d *Dispatcher[K]) Hash(key K) uint64 {
	if k, ok := any(key).(string); ok {
		return xxhash.Sum64String(k)
	}
	return maphash.Comparable(d.seed, key)
}

func normalize(n int) int {
	if n < 1 {
		n = 1
	}
	if n > MaxShards {
		n = MaxShards
	}
	if n&(n-1) != 0 {
		n = 1 << bits.Len(uint(n))
	}
	return n
}
