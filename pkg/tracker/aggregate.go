package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrWaitTimeout is wrapped into the Aggregate error when WaitForAll times
// out before all input Trackers have produced a value.
var ErrWaitTimeout = errors.New("tracker: wait timed out")

// Aggregate is the result record produced by WaitForAll. Results are
// positional: Results[i] corresponds to the i-th input Tracker. On
// timeout, Err wraps ErrWaitTimeout and Results holds the partial results
// collected so far, with the zero value of V at unfilled positions.
type Aggregate[V any] struct {
	Err     error
	Results []V
}

// Scheduler schedules a function to run after a delay. The returned stop
// function cancels the pending call and reports whether it was still
// pending. The default scheduler is backed by time.AfterFunc; tests
// substitute a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// timerScheduler is the default Scheduler.
type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// waitConfig holds the WaitForAll options.
type waitConfig struct {
	timeout   time.Duration
	scheduler Scheduler
}

// WaitOption configures WaitForAll.
type WaitOption func(*waitConfig)

// WithTimeout makes WaitForAll report a partial result wrapping
// ErrWaitTimeout if not all inputs have fired within d. A non-positive d
// disables the timeout.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = d
	}
}

// WithScheduler substitutes the deferred-callback scheduler used for the
// timeout.
func WithScheduler(s Scheduler) WaitOption {
	return func(c *waitConfig) {
		c.scheduler = s
	}
}

// WaitForAll returns a Tracker that is assigned exactly once: either with
// the positional results of all input Trackers, or, if a timeout is
// configured and elapses first, with a partial Aggregate whose Err wraps
// ErrWaitTimeout. Inputs that are already initialized contribute their
// cached value immediately. A late completion after a timeout does not
// fire a second notification.
func WaitForAll[V any](trackers []*Tracker[V], opts ...WaitOption) *Tracker[Aggregate[V]] {
	cfg := waitConfig{scheduler: timerScheduler{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	out := New[Aggregate[V]]()

	n := len(trackers)
	if n == 0 {
		out.SetValue(Aggregate[V]{Results: []V{}})
		return out
	}

	var (
		mu        sync.Mutex
		results   = make([]V, n)
		remaining = n
		done      bool
		stop      func() bool
	)

	if cfg.timeout > 0 {
		stop = cfg.scheduler.AfterFunc(cfg.timeout, func() {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			done = true
			got := n - remaining
			partial := make([]V, n)
			copy(partial, results)
			mu.Unlock()

			out.SetValue(Aggregate[V]{
				Err:     fmt.Errorf("%w after %s (%d of %d results)", ErrWaitTimeout, cfg.timeout, got, n),
				Results: partial,
			})
		})
	}

	for i, t := range trackers {
		i := i
		t.GetOnce(func(v V) {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			results[i] = v
			remaining--
			if remaining > 0 {
				mu.Unlock()
				return
			}
			done = true
			all := make([]V, n)
			copy(all, results)
			mu.Unlock()

			if stop != nil {
				stop()
			}
			out.SetValue(Aggregate[V]{Results: all})
		})
	}

	return out
}
