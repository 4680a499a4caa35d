package appctx

import "errors"

var (
	// ErrDuplicateCache indicates a cache name is already registered.
	ErrDuplicateCache = errors.New("appctx: cache already registered")

	// ErrCacheType indicates a registered cache has different key or value
	// types than requested.
	ErrCacheType = errors.New("appctx: cache has different type")

	// ErrClosed indicates the context has been closed.
	ErrClosed = errors.New("appctx: context closed")
)
