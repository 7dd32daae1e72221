// Package cooldown implements the per-actor single-flight guard that keeps a
// user or chat from re-entering a command while one is running or cooling
// down. Excess requests are dropped, never queued.
package cooldown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the guard state of one actor.
type State int

const (
	// StateIdle is the implicit state of actors without an entry.
	StateIdle State = iota
	// StateProcessing means a command is in flight.
	StateProcessing
	// StateCoolingDown means the last command finished less than a window ago.
	StateCoolingDown
	// StateMuted means a busy notice was already sent for the current
	// processing or cooling period; further arrivals are dropped silently.
	StateMuted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateCoolingDown:
		return "cooling-down"
	case StateMuted:
		return "muted"
	}
	return "unknown"
}

// Decision tells the caller what to do with an arriving command.
type Decision int

const (
	// Accepted means the caller owns the slot and must call Release.
	Accepted Decision = iota
	// Busy means the caller should send a single busy notice.
	Busy
	// Dropped means the caller should do nothing.
	Dropped
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Busy:
		return "busy"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

type entry struct {
	state    State
	inFlight bool
	expires  time.Time
}

// Guard is safe for concurrent use.
type Guard struct {
	clock  clockwork.Clock
	window time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

// NewGuard creates a guard whose cooling period lasts window after each
// command completes. A nil clock uses the wall clock.
func NewGuard(window time.Duration, clock clockwork.Clock) *Guard {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Guard{
		clock:   clock,
		window:  window,
		entries: make(map[string]*entry),
	}
}

// Acquire applies an arriving command for actor to the state machine.
func (g *Guard) Acquire(actor string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.live(actor)
	if e == nil {
		g.entries[actor] = &entry{state: StateProcessing, inFlight: true}
		return Accepted
	}

	switch e.state {
	case StateProcessing, StateCoolingDown:
		e.state = StateMuted
		return Busy
	default:
		return Dropped
	}
}

// Release marks the actor's command as finished, successful or not, and
// starts its cooling period.
func (g *Guard) Release(actor string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[actor]
	if !ok || !e.inFlight {
		return
	}
	if g.window <= 0 {
		delete(g.entries, actor)
		return
	}

	e.inFlight = false
	e.expires = g.clock.Now().Add(g.window)
	if e.state == StateProcessing {
		e.state = StateCoolingDown
	}
}

// State returns the current state of actor.
func (g *Guard) State(actor string) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e := g.live(actor); e != nil {
		return e.state
	}
	return StateIdle
}

// Sweep drops every expired entry and returns how many were removed.
func (g *Guard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	removed := 0
	for actor, e := range g.entries {
		if e.expired(now) {
			delete(g.entries, actor)
			removed++
		}
	}
	return removed
}

// Len returns the number of actors that are not idle.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// live returns the entry of actor, deleting it first when expired.
// Callers hold g.mu.
func (g *Guard) live(actor string) *entry {
	e, ok := g.entries[actor]
	if !ok {
		return nil
	}
	if e.expired(g.clock.Now()) {
		delete(g.entries, actor)
		return nil
	}
	return e
}

func (e *entry) expired(now time.Time) bool {
	return !e.inFlight && !now.Before(e.expires)
}
