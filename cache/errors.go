package cache

import "errors"

// MaxKeyLength is the maximum allowed length for a memo namespace.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	// ErrNilCache is returned when an operation is attempted on a nil cache.
	ErrNilCache = errors.New("cache: cache is nil")

	// ErrNilProducer is returned by GetOrInsertWith when the key is absent
	// and no producer was supplied.
	ErrNilProducer = errors.New("cache: producer is nil")

	// ErrInvalidKey indicates an empty or malformed key or namespace.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrKeyTooLong indicates a key or namespace exceeding MaxKeyLength.
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)
