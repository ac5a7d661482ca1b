package tracker

import "sync/atomic"

// globalIDCounter is the source of unique registration ids across all
// Trackers. IDs are monotonically increasing and never reused.
var globalIDCounter uint64

// nextID returns the next unique registration id.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// newListener wraps a callback with its removal identities.
func newListener[V any](cb Callback[V]) listener[V] {
	return listener[V]{fn: cb, key: callbackKey(cb), id: nextID()}
}
