package tally

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// State is a step of a run's lifecycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateResolving
	StateRanking
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateResolving:
		return "resolving"
	case StateRanking:
		return "ranking"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:      {StateFetching},
	StateFetching:  {StateResolving, StateCancelled, StateFailed},
	StateResolving: {StateRanking, StateCancelled, StateFailed},
	StateRanking:   {StateDone},
}

// Progress is one report of a running aggregation.
type Progress struct {
	State State `json:"state"`
	// Fraction is in [0,1] and never decreases during a run. It is meaningless
	// while Indeterminate is set (total not known yet).
	Fraction      float64 `json:"fraction"`
	Indeterminate bool    `json:"indeterminate"`
	Done          int     `json:"done"`
	Total         int     `json:"total"`
	Skipped       int     `json:"skipped"`
	Status        string  `json:"status"`
}

// Observer receives progress reports. Calls come from one goroutine at a time.
type Observer interface {
	Observe(Progress)
}

// ObserverFunc adapts a func to Observer.
type ObserverFunc func(Progress)

func (f ObserverFunc) Observe(p Progress) { f(p) }

// Tracker owns the state machine of one run and fans reports out to an
// observer. Snapshot may be polled from any goroutine.
type Tracker struct {
	mu   sync.Mutex
	last Progress
	obs  Observer
}

// NewTracker returns an idle tracker. obs may be nil.
func NewTracker(obs Observer) *Tracker {
	return &Tracker{obs: obs, last: Progress{State: StateIdle, Status: "Idle"}}
}

// Transition moves the run to next, rejecting moves the lifecycle does not allow.
func (t *Tracker) Transition(next State, status string) error {
	t.mu.Lock()
	cur := t.last.State
	allowed := false
	for _, s := range transitions[cur] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		t.mu.Unlock()
		return errors.Errorf("invalid transition %s -> %s", cur, next)
	}
	p := t.last
	p.State = next
	p.Status = status
	switch next {
	case StateFetching:
		p.Indeterminate = true
	case StateResolving:
		p.Indeterminate = false
	case StateRanking, StateDone:
		p.Indeterminate = false
		p.Fraction = 1
	}
	t.last = p
	t.mu.Unlock()
	t.emit(p)
	return nil
}

// Report publishes an in-state progress update. The state field of p is
// ignored and a fraction lower than the previous one is clamped.
func (t *Tracker) Report(p Progress) {
	t.mu.Lock()
	p.State = t.last.State
	if p.Fraction < t.last.Fraction {
		p.Fraction = t.last.Fraction
	}
	if p.Fraction > 1 {
		p.Fraction = 1
	}
	t.last = p
	t.mu.Unlock()
	t.emit(p)
}

// Snapshot returns the latest report.
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Tracker) emit(p Progress) {
	if t.obs != nil {
		t.obs.Observe(p)
	}
}
