// Package syncstatus tracks the synchronisation phase shown to the user:
// idle, syncing, synced, error, or offline.
//
// Mutation flows drive it with StartSync / ReportSuccess / ReportFailure.
// Connectivity drives the orthogonal offline phase with SetOffline /
// SetOnline. Terminal phases fall back to idle on their own after a delay.
// The controller touches neither the cache nor the network.
package syncstatus

import (
	"sync"
	"time"
)

// Phase is the current synchronisation phase.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseSyncing Phase = "syncing"
	PhaseSynced  Phase = "synced"
	PhaseError   Phase = "error"
	PhaseOffline Phase = "offline"
)

const (
	DefaultSuccessReset = 3 * time.Second
	DefaultErrorReset   = 5 * time.Second
)

// State is a snapshot of the controller.
type State struct {
	Phase        Phase
	LastSyncTime time.Time // zero until the first success
	ErrorMessage string
}

// Controller is safe for concurrent use.
type Controller struct {
	successReset time.Duration
	errorReset   time.Duration
	clock        func() time.Time

	mu        sync.Mutex
	state     State
	timer     *time.Timer
	gen       uint64
	listeners map[uint64]func(State)
	nextID    uint64
}

type Option func(*Controller)

// WithResetDelays overrides how long synced and error last before idle.
func WithResetDelays(success, failure time.Duration) Option {
	return func(c *Controller) {
		c.successReset = success
		c.errorReset = failure
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

func New(opts ...Option) *Controller {
	c := &Controller{
		successReset: DefaultSuccessReset,
		errorReset:   DefaultErrorReset,
		clock:        time.Now,
		state:        State{Phase: PhaseIdle},
		listeners:    make(map[uint64]func(State)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe calls fn after every change. The returned function unsubscribes.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// StartSync enters syncing and clears the last error.
func (c *Controller) StartSync() {
	c.update(func(s *State) (time.Duration, bool) {
		s.ErrorMessage = ""
		if s.Phase == PhaseOffline {
			return 0, true
		}
		s.Phase = PhaseSyncing
		return 0, true
	})
}

// ReportSuccess enters synced, records the sync time and schedules idle.
func (c *Controller) ReportSuccess() {
	now := c.clock()
	c.update(func(s *State) (time.Duration, bool) {
		s.LastSyncTime = now
		if s.Phase == PhaseOffline {
			return 0, true
		}
		s.Phase = PhaseSynced
		return c.successReset, true
	})
}

// ReportFailure enters error with msg and schedules idle.
func (c *Controller) ReportFailure(msg string) {
	c.update(func(s *State) (time.Duration, bool) {
		s.ErrorMessage = msg
		if s.Phase == PhaseOffline {
			return 0, true
		}
		s.Phase = PhaseError
		return c.errorReset, true
	})
}

// SetOffline preempts whatever phase is current.
func (c *Controller) SetOffline() {
	c.update(func(s *State) (time.Duration, bool) {
		if s.Phase == PhaseOffline {
			return 0, false
		}
		s.Phase = PhaseOffline
		return 0, true
	})
}

// SetOnline leaves offline for idle. Other phases are left alone.
func (c *Controller) SetOnline() {
	c.update(func(s *State) (time.Duration, bool) {
		if s.Phase != PhaseOffline {
			return 0, false
		}
		s.Phase = PhaseIdle
		return 0, true
	})
}

// update applies fn; fn returns the auto-reset delay (0 for none) and
// whether anything changed. Any change cancels a pending reset.
func (c *Controller) update(fn func(s *State) (time.Duration, bool)) {
	c.mu.Lock()
	reset, changed := fn(&c.state)
	if !changed {
		c.mu.Unlock()
		return
	}

	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if reset > 0 {
		gen := c.gen
		c.timer = time.AfterFunc(reset, func() { c.resetToIdle(gen) })
	}

	state, listeners := c.state, c.snapshotListeners()
	c.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

func (c *Controller) resetToIdle(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || (c.state.Phase != PhaseSynced && c.state.Phase != PhaseError) {
		c.mu.Unlock()
		return
	}
	c.state.Phase = PhaseIdle
	c.timer = nil
	state, listeners := c.state, c.snapshotListeners()
	c.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

func (c *Controller) snapshotListeners() []func(State) {
	out := make([]func(State), 0, len(c.listeners))
	for _, l := range c.listeners {
		out = append(out, l)
	}
	return out
}
