// Package fsm is a tick-driven finite state machine engine.
// States are records of closures stored in a fixed table indexed by StateID.
// The engine performs no I/O of its own and never blocks: each call to Step
// runs exactly one action set and returns.
package fsm

import (
	"errors"
	"fmt"
)

var (
	ErrNoStates  = errors.New("fsm: no states")
	ErrBadTarget = errors.New("fsm: state id out of range")
	ErrNilGuard  = errors.New("fsm: transition without guard")
)

// StateID indexes a state in the machine's table.
type StateID int

// Action is an entry, exit or internal behaviour of a state.
type Action func()

// Guard is polled once per tick while its state is active. It may update
// shared cycle state (counters, sampled pin levels) but must not wait.
type Guard func() bool

// Transition moves the machine to Target when Guard reports true.
// Action, if set, runs between the source's exit and the target's entry.
type Transition struct {
	Target StateID
	Guard  Guard
	Action Action
}

// State is one entry of the state table. Any action may be nil.
type State struct {
	Name        string
	OnEntry     Action
	OnExit      Action
	Internal    Action
	Transitions []Transition
}

// Always is a guard that is always satisfied.
func Always() bool { return true }

// Machine drives a state table one tick at a time.
// It is not safe for concurrent use; the host must not call Step re-entrantly.
type Machine struct {
	id     int
	name   string
	states []State
	active StateID
	ticks  uint64

	onTransition func(from, to StateID)
}

// New validates the table and returns a machine positioned at initial.
// The initial state's entry action is not run; give the table an initial
// state whose only job is to transition.
func New(id int, name string, states []State, initial StateID) (*Machine, error) {
	if len(states) == 0 {
		return nil, ErrNoStates
	}
	if int(initial) < 0 || int(initial) >= len(states) {
		return nil, fmt.Errorf("initial state %d: %w", initial, ErrBadTarget)
	}
	for i, s := range states {
		for j, tr := range s.Transitions {
			if tr.Guard == nil {
				return nil, fmt.Errorf("state %s transition %d: %w", stateLabel(i, s), j, ErrNilGuard)
			}
			if int(tr.Target) < 0 || int(tr.Target) >= len(states) {
				return nil, fmt.Errorf("state %s transition %d to %d: %w", stateLabel(i, s), j, tr.Target, ErrBadTarget)
			}
		}
	}

	table := make([]State, len(states))
	copy(table, states)
	return &Machine{
		id:     id,
		name:   name,
		states: table,
		active: initial,
	}, nil
}

// OnTransition registers a hook run after the transition's action and
// before the new state's entry action.
func (m *Machine) OnTransition(hook func(from, to StateID)) {
	m.onTransition = hook
}

// Step advances the machine by one tick. The first transition of the active
// state whose guard is satisfied fires; otherwise the internal action runs.
// A state entered during this call is not evaluated until the next call.
func (m *Machine) Step() {
	m.ticks++
	cur := &m.states[m.active]

	for _, tr := range cur.Transitions {
		if !tr.Guard() {
			continue
		}
		from := m.active
		run(cur.OnExit)
		run(tr.Action)
		m.active = tr.Target
		if m.onTransition != nil {
			m.onTransition(from, tr.Target)
		}
		run(m.states[m.active].OnEntry)
		return
	}

	run(cur.Internal)
}

func run(a Action) {
	if a != nil {
		a()
	}
}

// ID returns the machine's identifier.
func (m *Machine) ID() int { return m.id }

// Name returns the machine's name.
func (m *Machine) Name() string { return m.name }

// Current returns the active state.
func (m *Machine) Current() StateID { return m.active }

// CurrentName returns the name of the active state.
func (m *Machine) CurrentName() string { return m.StateName(m.active) }

// StateName returns the name of id, or "" when id is not in the table.
func (m *Machine) StateName(id StateID) string {
	if int(id) < 0 || int(id) >= len(m.states) {
		return ""
	}
	return m.states[id].Name
}

// NumStates returns the size of the state table.
func (m *Machine) NumStates() int { return len(m.states) }

// Ticks returns the number of Step calls made so far.
func (m *Machine) Ticks() uint64 { return m.ticks }

func stateLabel(i int, s State) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("#%d", i)
}
