// Package cache provides a sharded, heap-size-bounded resource cache.
//
// Keys route to a fixed number of shards (see package shard). Each shard
// has its own lock, byte budget and least-recently-used list. Inserting a
// value charges its footprint (see package sizeof) to the shard, which then
// evicts least recently used entries until it fits. A single value larger
// than the budget is still stored and evicts everything else in its shard.
//
// # Producers
//
// GetOrInsertWith runs its producer outside any lock. By default racing
// misses for one key may each produce; the last insert wins and later Gets
// all see that one value. Config.SingleFlight coalesces racing misses into a
// single producer run instead.
//
// # Handles
//
// Values are returned as *Handle, a shared read-only reference that stays
// valid after the entry leaves the cache.
//
// Memo and Keyer build string keys from structured inputs; Warm fills many
// keys with bounded parallelism.
package cache
