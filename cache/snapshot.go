package cache

// ShardStats describes one shard at a point in time.
type ShardStats struct {
	Index   int    `json:"index"`
	Entries int    `json:"entries"`
	Used    uint64 `json:"bytes_used"`
	Budget  uint64 `json:"bytes_budget"`
}

// Oversized reports whether the shard is over budget, which only happens
// when a single entry is larger than the whole budget.
func (s ShardStats) Oversized() bool {
	return s.Used > s.Budget
}

// Snapshot is a diagnostic view of a cache. Shards are read one at a time,
// so totals are consistent per shard but not across shards.
type Snapshot struct {
	Shards  []ShardStats `json:"shards"`
	Entries int          `json:"entries"`
	Used    uint64       `json:"bytes_used"`
	Budget  uint64       `json:"bytes_budget"`
}

// Snapshot returns per-shard entry counts, bytes used and bytes budgeted.
func (c *Cache[K, V]) Snapshot() Snapshot {
	snap := Snapshot{Shards: make([]ShardStats, len(c.shards))}
	for i, s := range c.shards {
		n, b := s.stats()
		snap.Shards[i] = ShardStats{
			Index:   i,
			Entries: n,
			Used:    b.Used,
			Budget:  b.Limit,
		}
		snap.Entries += n
		snap.Used += b.Used
		snap.Budget += b.Limit
	}
	return snap
}
