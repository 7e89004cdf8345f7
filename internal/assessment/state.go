package assessment

import "fmt"

// State is a session's position in the assessment lifecycle.
type State string

const (
	StateInitializing     State = "initializing"
	StateAwaitingItem     State = "awaiting_item"
	StateAwaitingResponse State = "awaiting_response"
	StateAdjusting        State = "adjusting"
	StateFinalizing       State = "finalizing"
	StateComplete         State = "complete"
	StateAborted          State = "aborted"
)

// IsTerminal reports whether no further transitions are possible from s.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateAborted
}

// canTransition encodes the session state machine. Aborted is reachable
// from every non-terminal state.
func canTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateAborted {
		return true
	}
	switch from {
	case StateInitializing:
		return to == StateAwaitingItem
	case StateAwaitingItem:
		return to == StateAwaitingResponse
	case StateAwaitingResponse:
		return to == StateAdjusting
	case StateAdjusting:
		return to == StateAwaitingItem || to == StateFinalizing
	case StateFinalizing:
		return to == StateComplete
	default:
		return false
	}
}

// transition moves cur to next, or reports why it cannot.
func transition(cur *State, next State) error {
	if !canTransition(*cur, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, *cur, next)
	}
	*cur = next
	return nil
}
