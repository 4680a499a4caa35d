// Package shard partitions a key space into a fixed number of independently
// locked shards.
//
// The shard count defaults to a multiple of GOMAXPROCS and is fixed for the
// lifetime of a Dispatcher, so a key always routes to the same shard. There
// is no live resharding.
package shard
