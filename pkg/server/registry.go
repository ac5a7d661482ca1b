package server

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/trackd-dev/trackd/pkg/tracker"
)

// Registry holds the daemon's named trackers. Trackers are created on
// first write or subscription and live for the daemon's lifetime; values
// are opaque JSON payloads.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*tracker.Tracker[json.RawMessage]

	// onCreate is invoked (outside the lock) whenever a tracker is
	// created. Used for the trackers gauge.
	onCreate func(name string)
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		trackers: make(map[string]*tracker.Tracker[json.RawMessage]),
	}
}

// OnCreate registers a hook invoked for every tracker creation.
func (r *Registry) OnCreate(fn func(name string)) {
	r.mu.Lock()
	r.onCreate = fn
	r.mu.Unlock()
}

// Get returns the tracker with the given name, or nil if it does not
// exist.
func (r *Registry) Get(name string) *tracker.Tracker[json.RawMessage] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackers[name]
}

// GetOrCreate returns the tracker with the given name, creating an
// uninitialized one if necessary.
func (r *Registry) GetOrCreate(name string) *tracker.Tracker[json.RawMessage] {
	r.mu.Lock()
	t, ok := r.trackers[name]
	if !ok {
		t = tracker.New[json.RawMessage]()
		r.trackers[name] = t
	}
	hook := r.onCreate
	r.mu.Unlock()

	if !ok && hook != nil {
		hook(name)
	}
	return t
}

// Names returns the sorted names of all trackers.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.trackers))
	for name := range r.trackers {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// Len returns the number of trackers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
