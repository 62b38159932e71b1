package review

import (
	"fmt"

	"tsumugi/internal/services"
)

// State is a chapter's position in the review workflow.
type State string

const (
	StateExtracted   State = "extracted"
	StateUnderReview State = "under_review"
	StateApproved    State = "approved"
	StateCorrected   State = "corrected"
	StateCancelled   State = "cancelled"
	StatePersisted   State = "persisted"
)

var validTransitions = map[State][]State{
	StateExtracted:   {StateUnderReview},
	StateUnderReview: {StateApproved, StateCorrected, StateExtracted, StateCancelled},
	StateApproved:    {StatePersisted},
	StateCorrected:   {StatePersisted},
	// Cancelled and Persisted are terminal for the chapter.
	StateCancelled: {},
	StatePersisted: {},
}

// CanTransition reports whether the workflow may move from one state to
// another.
func CanTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a state ends the chapter's workflow.
func (s State) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// advance moves the workflow to the next state, failing on any move the
// transition table does not allow.
func advance(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, services.Wrap(services.ErrValidation, "review", "state transition",
			fmt.Sprintf("%s -> %s is not a legal transition", from, to), nil)
	}
	return to, nil
}
