package tracker

import (
	"reflect"
	"sync"
)

// Callback receives the tracked value when a notification fires.
type Callback[V any] func(V)

// Tracker holds a single mutable value and notifies registered listeners
// when the value is assigned. The zero value is not usable; construct with
// New.
type Tracker[V any] struct {
	mu sync.Mutex

	// cached is the most recently stored value.
	cached V

	// initialized flips false→true at most once: at construction (explicit
	// initial value or AsInitialized) or on the first SetValue.
	initialized bool

	// onceListeners are pending one-shot subscribers waiting for the
	// first-ever value. Permanently empty once initialized.
	onceListeners []listener[V]

	// everyListeners are persistent subscribers notified on every
	// assignment.
	everyListeners []listener[V]

	// nextListeners are one-shot subscribers waiting for the next
	// assignment only. Cleared at the start of each notifying assignment.
	nextListeners []listener[V]
}

// listener pairs a callback with its identity key for callback-based
// removal and a unique id for handle-based removal.
type listener[V any] struct {
	fn  Callback[V]
	key uintptr
	id  uint64
}

// callbackKey returns the identity of a callback. Identity is the
// callback's code pointer: passing the same function value registered
// earlier matches, and distinct closures over the same function literal
// compare equal.
func callbackKey[V any](cb Callback[V]) uintptr {
	return reflect.ValueOf(cb).Pointer()
}

// Option configures a Tracker at construction.
type Option[V any] func(*Tracker[V])

// WithInitial sets an initial value and marks the Tracker initialized.
func WithInitial[V any](v V) Option[V] {
	return func(t *Tracker[V]) {
		t.cached = v
		t.initialized = true
	}
}

// AsInitialized marks the Tracker initialized without supplying a value.
// Use this when the zero value of V is a legitimate "set" state, so that
// once-listeners and every-listeners replay it immediately.
func AsInitialized[V any]() Option[V] {
	return func(t *Tracker[V]) {
		t.initialized = true
	}
}

// New creates a Tracker. With no options the Tracker starts uninitialized
// and holds the zero value of V.
func New[V any](opts ...Option[V]) *Tracker[V] {
	t := &Tracker[V]{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ReadCached returns the current cached value without side effects. If the
// Tracker was never initialized this is the zero value of V.
func (t *Tracker[V]) ReadCached() V {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cached
}

// Initialized reports whether a value has ever been stored (or the Tracker
// was constructed as initialized). The transition is one-way.
func (t *Tracker[V]) Initialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialized
}

// GetOnce registers a one-shot listener for the first-ever value. If the
// Tracker is already initialized the callback fires synchronously with the
// cached value and is not stored, so a later removal reports false.
func (t *Tracker[V]) GetOnce(cb Callback[V]) {
	t.mu.Lock()
	if t.initialized {
		v := t.cached
		t.mu.Unlock()
		cb(v)
		return
	}
	t.onceListeners = append(t.onceListeners, newListener(cb))
	t.mu.Unlock()
}

// OnOnce registers cb like GetOnce and returns an unsubscribe function
// that removes exactly this registration. Unsubscribe reports false if the
// callback already fired or was removed. Unlike the callback-based
// removals, the handle never matches a different registration that happens
// to share the callback's code pointer.
func (t *Tracker[V]) OnOnce(cb Callback[V]) (unsubscribe func() bool) {
	t.mu.Lock()
	if t.initialized {
		v := t.cached
		t.mu.Unlock()
		cb(v)
		return func() bool { return false }
	}
	l := newListener(cb)
	t.onceListeners = append(t.onceListeners, l)
	t.mu.Unlock()
	return func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		return removedByID(&t.onceListeners, l.id)
	}
}

// GetEveryChange registers a persistent listener notified on every
// assignment. If the Tracker is already initialized the callback also
// fires synchronously now with the cached value.
func (t *Tracker[V]) GetEveryChange(cb Callback[V]) {
	t.mu.Lock()
	t.everyListeners = append(t.everyListeners, newListener(cb))
	replay := t.initialized
	v := t.cached
	t.mu.Unlock()
	if replay {
		cb(v)
	}
}

// OnEveryChange registers cb like GetEveryChange and returns an
// unsubscribe function that removes exactly this registration.
func (t *Tracker[V]) OnEveryChange(cb Callback[V]) (unsubscribe func() bool) {
	t.mu.Lock()
	l := newListener(cb)
	t.everyListeners = append(t.everyListeners, l)
	replay := t.initialized
	v := t.cached
	t.mu.Unlock()
	if replay {
		cb(v)
	}
	return func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		return removedByID(&t.everyListeners, l.id)
	}
}

// GetNext registers a one-shot listener for the next assignment only. It
// never fires for the current value; if no further assignment happens the
// callback never fires.
func (t *Tracker[V]) GetNext(cb Callback[V]) {
	t.mu.Lock()
	t.nextListeners = append(t.nextListeners, newListener(cb))
	t.mu.Unlock()
}

// OnNext registers cb like GetNext and returns an unsubscribe function
// that removes exactly this registration.
func (t *Tracker[V]) OnNext(cb Callback[V]) (unsubscribe func() bool) {
	t.mu.Lock()
	l := newListener(cb)
	t.nextListeners = append(t.nextListeners, l)
	t.mu.Unlock()
	return func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		return removedByID(&t.nextListeners, l.id)
	}
}

// SetValue stores a value and notifies listeners. The full notification
// list is built before any callback runs: once-listeners (first assignment
// only), then next-listeners, then every-listeners, each in registration
// order. Next-listeners are cleared before callbacks run, so a GetNext
// issued inside a callback is only eligible for the following assignment.
func (t *Tracker[V]) SetValue(v V) {
	t.mu.Lock()
	first := !t.initialized
	t.cached = v

	var run []Callback[V]
	if first {
		for _, l := range t.onceListeners {
			run = append(run, l.fn)
		}
		t.onceListeners = nil
	}
	for _, l := range t.nextListeners {
		run = append(run, l.fn)
	}
	t.nextListeners = nil
	for _, l := range t.everyListeners {
		run = append(run, l.fn)
	}
	t.initialized = true
	t.mu.Unlock()

	invokeAll(run, v)
}

// SetSilent stores a value without notifying any listener and without
// changing the initialization state. Dangerous: observers relying on
// seeing every mutation will be out of sync with the cached value.
func (t *Tracker[V]) SetSilent(v V) {
	t.mu.Lock()
	t.cached = v
	t.mu.Unlock()
}

// RemoveOnceListener removes a pending once-listener. It reports false if
// the callback is not registered, including when it already fired.
func (t *Tracker[V]) RemoveOnceListener(cb Callback[V]) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return removedFrom(&t.onceListeners, callbackKey(cb))
}

// RemoveEveryListener removes a persistent listener. Duplicate
// registrations are removed one at a time, first match only.
func (t *Tracker[V]) RemoveEveryListener(cb Callback[V]) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return removedFrom(&t.everyListeners, callbackKey(cb))
}

// RemoveNextListener removes a pending next-listener.
func (t *Tracker[V]) RemoveNextListener(cb Callback[V]) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return removedFrom(&t.nextListeners, callbackKey(cb))
}

// removedFrom removes the first listener with the given key, preserving
// the order of the remaining entries.
func removedFrom[V any](listeners *[]listener[V], key uintptr) bool {
	ls := *listeners
	for i, l := range ls {
		if l.key == key {
			*listeners = append(ls[:i:i], ls[i+1:]...)
			return true
		}
	}
	return false
}

// removedByID removes the listener with the given registration id.
func removedByID[V any](listeners *[]listener[V], id uint64) bool {
	ls := *listeners
	for i, l := range ls {
		if l.id == id {
			*listeners = append(ls[:i:i], ls[i+1:]...)
			return true
		}
	}
	return false
}

// invokeAll runs every callback in order. A panicking callback does not
// prevent the remaining callbacks of the same cycle from running; the
// first panic is re-raised after the cycle completes.
func invokeAll[V any](cbs []Callback[V], v V) {
	var firstPanic any
	panicked := false
	for _, cb := range cbs {
		func() {
			defer func() {
				if r := recover(); r != nil && !panicked {
					panicked = true
					firstPanic = r
				}
			}()
			cb(v)
		}()
	}
	if panicked {
		panic(firstPanic)
	}
}
