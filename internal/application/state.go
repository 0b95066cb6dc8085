// Package application defines the durable tracking entity for one
// real-world job opening and its state machine.
//
// Valid state graph:
//
//	DISCOVERED ──► ELIGIBLE ──► MATERIALS_READY ──► SUBMITTED ──► SENT
//	    │              │               │                 │
//	    │              └───────────────┴─────────────────┴──► FAILED
//	    └──► SKIPPED
//
// SENT, SKIPPED and FAILED are terminal. A record only ever moves forward;
// the engine never performs a backward transition.
package application

import "fmt"

// State values are persisted verbatim in the tracking store.
type State string

const (
	StateDiscovered     State = "DISCOVERED"
	StateEligible       State = "ELIGIBLE"
	StateMaterialsReady State = "MATERIALS_READY"
	StateSubmitted      State = "SUBMITTED"
	StateSent           State = "SENT"
	StateSkipped        State = "SKIPPED"
	StateFailed         State = "FAILED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StateDiscovered:     {StateEligible, StateSkipped, StateFailed},
	StateEligible:       {StateMaterialsReady, StateFailed},
	StateMaterialsReady: {StateSubmitted, StateFailed},
	StateSubmitted:      {StateSent, StateFailed},
	// SENT, SKIPPED and FAILED are terminal, no outgoing transitions
}

// ParseState converts a raw string to a State, returning an error for
// unknown values.
func ParseState(s string) (State, error) {
	st := State(s)
	switch st {
	case StateDiscovered, StateEligible, StateMaterialsReady, StateSubmitted, StateSent, StateSkipped, StateFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown application state %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by
// the state machine.
func IsTransitionAllowed(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state, no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state has no outgoing transitions.
func IsTerminal(s State) bool {
	_, ok := validTransitions[s]
	return !ok
}
