// Package statemachine implements the StateMachine (§4.5): a versioned,
// bounded history of application state with rewind and diff support.
package statemachine

import (
	"fmt"

	"boruna/internal/value"
)

// MaxHistory is K in the spec (§3 "Framework state"): the most recent
// MaxHistory snapshots are retained; older ones are evicted.
const MaxHistory = 1000

// Snapshot is one recorded state at a given cycle, alongside its
// canonical JSON form. Rewind and Diff work on State (Diff compares with
// value.Equal); they do not read CanonicalJSON.
type Snapshot struct {
	Cycle         int
	State         value.Value
	CanonicalJSON string
}

// FieldDiff is one entry of a diff between two states: for Record-vs-Record
// it's keyed by field index; for any other pair it's the single root-level
// entry (index -1).
type FieldDiff struct {
	Index int
	Before value.Value
	After  value.Value
}

// StateMachine holds bounded history and the current state (§4.5).
type StateMachine struct {
	history []Snapshot
	cycle   int
	current value.Value
}

// New builds a StateMachine seeded with the initial state at cycle 0.
func New(initial value.Value) *StateMachine {
	sm := &StateMachine{current: initial}
	sm.history = append(sm.history, Snapshot{Cycle: 0, State: initial, CanonicalJSON: value.CanonicalJSON(initial)})
	return sm
}

// Cycle reports the current cycle number.
func (sm *StateMachine) Cycle() int { return sm.cycle }

// State returns the current state.
func (sm *StateMachine) State() value.Value { return sm.current }

// Transition increments the cycle counter, pushes a snapshot for the new
// state, and evicts the oldest snapshot once history exceeds MaxHistory.
func (sm *StateMachine) Transition(newState value.Value) {
	sm.cycle++
	sm.current = newState
	sm.history = append(sm.history, Snapshot{Cycle: sm.cycle, State: newState, CanonicalJSON: value.CanonicalJSON(newState)})
	if len(sm.history) > MaxHistory {
		sm.history = sm.history[len(sm.history)-MaxHistory:]
	}
}

// Rewind restores the snapshot recorded at cycle c, failing if it has
// been evicted or never existed.
func (sm *StateMachine) Rewind(c int) error {
	snap, ok := sm.snapshotAt(c)
	if !ok {
		return fmt.Errorf("statemachine: cycle %d not in history", c)
	}
	sm.current = snap.State
	sm.cycle = snap.Cycle
	return nil
}

func (sm *StateMachine) snapshotAt(c int) (Snapshot, bool) {
	for _, s := range sm.history {
		if s.Cycle == c {
			return s, true
		}
	}
	return Snapshot{}, false
}

// DiffFromCycle compares the current state against the one recorded at
// cycle c. For two Records it reports a field-by-field diff; otherwise a
// single root-level diff (index -1) is emitted only if the values differ.
func (sm *StateMachine) DiffFromCycle(c int) ([]FieldDiff, error) {
	snap, ok := sm.snapshotAt(c)
	if !ok {
		return nil, fmt.Errorf("statemachine: cycle %d not in history", c)
	}
	return Diff(snap.State, sm.current), nil
}

// Diff implements the diff rule itself (§4.5), independent of history —
// used directly by DiffFromCycle and by any caller comparing two states.
func Diff(before, after value.Value) []FieldDiff {
	if before.Kind == value.KindRecord && after.Kind == value.KindRecord {
		var diffs []FieldDiff
		n := len(before.Fields)
		if len(after.Fields) > n {
			n = len(after.Fields)
		}
		for i := 0; i < n; i++ {
			var b, a value.Value
			if i < len(before.Fields) {
				b = before.Fields[i]
			}
			if i < len(after.Fields) {
				a = after.Fields[i]
			}
			if !value.Equal(b, a) {
				diffs = append(diffs, FieldDiff{Index: i, Before: b, After: a})
			}
		}
		return diffs
	}
	if value.Equal(before, after) {
		return nil
	}
	return []FieldDiff{{Index: -1, Before: before, After: after}}
}

// Restore accepts a serialized state (the tagged-object wire form that
// Value.MarshalJSON produces, not the value.CanonicalJSON string) and
// transitions to it, as if it were a freshly produced new state.
func (sm *StateMachine) Restore(data []byte) error {
	v, err := value.FromJSON(data)
	if err != nil {
		return fmt.Errorf("statemachine: restore: %w", err)
	}
	sm.Transition(v)
	return nil
}
