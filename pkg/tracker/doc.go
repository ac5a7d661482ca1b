// Package tracker provides a single-value change-notification primitive.
//
// A Tracker holds exactly one mutable value and lets interested parties
// subscribe to its initialization and subsequent mutations. It supports
// three independent listener lifecycles:
//
//	t := tracker.New[int]()
//	t.GetOnce(cb)        // fires for the first-ever value, or immediately
//	                     // if one is already cached
//	t.GetEveryChange(cb) // fires for the current value (if any) and every
//	                     // assignment after that, until removed
//	t.GetNext(cb)        // fires for the next assignment only, never for
//	                     // the current value
//	t.SetValue(42)       // notifies: once-listeners, next-listeners,
//	                     // every-listeners, in registration order
//
// Notification is synchronous: SetValue builds the full callback list
// before invoking any callback, so a callback that removes another
// listener or triggers a nested SetValue cannot change the membership or
// ordering of the in-progress cycle.
//
// # Aggregation
//
// WaitForAll composes several Trackers into one that eventually holds an
// Aggregate with the positional results of all inputs:
//
//	out := tracker.WaitForAll(inputs, tracker.WithTimeout(5*time.Second))
//	out.GetOnce(func(agg tracker.Aggregate[string]) { ... })
//
// # Thread Safety
//
// All Tracker operations are safe for concurrent use. Callbacks are always
// invoked with the Tracker's lock released, so callbacks may freely call
// back into the same Tracker.
package tracker
