package review

import (
	"context"

	"tsumugi/internal/consolidate"
	"tsumugi/internal/delta"
	"tsumugi/internal/schema"
)

// Action is the reviewer's verdict on a chapter under review.
type Action string

const (
	ActionApprove   Action = "approve"
	ActionCorrect   Action = "correct"
	ActionReExtract Action = "re_extract"
	ActionCancel    Action = "cancel"
)

// Presentation is everything the review surface sees for one chapter: the
// proposed snapshot, the prior chapter's snapshot, the computed delta, and
// the consolidation caveats that deserve a human look.
type Presentation struct {
	// State is the chapter's workflow state at presentation time, always
	// StateUnderReview.
	State      State
	Current    *schema.ChapterSnapshot
	Previous   *schema.ChapterSnapshot
	Delta      delta.Delta
	Ambiguous  []consolidate.AmbiguousMatch
	Expanded   []string
	Unresolved []string
	// Attempt counts re-extractions already spent on this chapter.
	Attempt int
}

// Decision carries the reviewer's action. Corrected holds the edited
// snapshot when Action is ActionCorrect.
type Decision struct {
	Action    Action
	Corrected *schema.ChapterSnapshot
}

// Reviewer supplies the human (or automated) decision for a chapter under
// review. At most one chapter is ever under review at a time, so the call is
// a plain synchronous boundary.
type Reviewer interface {
	Review(ctx context.Context, p Presentation) (Decision, error)
}

// AutoApprover approves every chapter unchanged. Used for unattended runs.
type AutoApprover struct{}

// Review always approves.
func (AutoApprover) Review(context.Context, Presentation) (Decision, error) {
	return Decision{Action: ActionApprove}, nil
}
