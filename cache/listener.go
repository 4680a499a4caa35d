package cache

// Reason says why an entry left the cache.
type Reason int

const (
	// ReasonCapacity means the entry was evicted to bring its shard back
	// under budget.
	ReasonCapacity Reason = iota
	// ReasonRemoved means the entry was removed explicitly.
	ReasonRemoved
	// ReasonReplaced means a new value was inserted under the same key.
	ReasonReplaced
	// ReasonCleared means the whole cache was cleared.
	ReasonCleared
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonCapacity:
		return "capacity"
	case ReasonRemoved:
		return "removed"
	case ReasonReplaced:
		return "replaced"
	case ReasonCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Listener observes cache activity.
//
// Contract:
//   - Concurrency: methods are called concurrently from any goroutine using
//     the cache and must be safe for concurrent use.
//   - Locking: methods are never called while a shard lock is held, so a
//     listener may call back into the cache.
//   - Errors: methods must not panic and should return quickly.
type Listener interface {
	// Hit is called when Get finds a key.
	Hit(shard int)

	// Miss is called when Get does not find a key.
	Miss(shard int)

	// Inserted is called after a value of the given size is stored.
	Inserted(shard int, bytes uint64)

	// Removed is called for every entry that leaves the cache.
	Removed(shard int, bytes uint64, reason Reason)
}

type noopListener struct{}

func (noopListener) Hit(int)                     {}
func (noopListener) Miss(int)                    {}
func (noopListener) Inserted(int, uint64)        {}
func (noopListener) Removed(int, uint64, Reason) {}
