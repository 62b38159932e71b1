package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"tsumugi/internal/review"
	"tsumugi/internal/schema"
)

// interactiveReviewer presents each chapter's delta on the terminal and
// reads the reviewer's decision from stdin.
type interactiveReviewer struct {
	in  *bufio.Scanner
	out io.Writer
}

func newInteractiveReviewer(in io.Reader, out io.Writer) *interactiveReviewer {
	return &interactiveReviewer{in: bufio.NewScanner(in), out: out}
}

func (r *interactiveReviewer) Review(_ context.Context, p review.Presentation) (review.Decision, error) {
	r.printPresentation(p)

	for {
		fmt.Fprint(r.out, "\n[a]pprove, [r]e-extract, [x] cancel, or path to a corrected snapshot JSON: ")
		if !r.in.Scan() {
			if err := r.in.Err(); err != nil {
				return review.Decision{}, fmt.Errorf("read review decision: %w", err)
			}
			// Closed stdin counts as cancellation.
			return review.Decision{Action: review.ActionCancel}, nil
		}
		answer := strings.TrimSpace(r.in.Text())
		switch strings.ToLower(answer) {
		case "a", "approve":
			return review.Decision{Action: review.ActionApprove}, nil
		case "r", "re-extract":
			return review.Decision{Action: review.ActionReExtract}, nil
		case "x", "cancel":
			return review.Decision{Action: review.ActionCancel}, nil
		case "":
			continue
		default:
			corrected, err := loadCorrectedSnapshot(answer, p.Current)
			if err != nil {
				fmt.Fprintf(r.out, "cannot use %s: %v\n", answer, err)
				continue
			}
			return review.Decision{Action: review.ActionCorrect, Corrected: corrected}, nil
		}
	}
}

func (r *interactiveReviewer) printPresentation(p review.Presentation) {
	fmt.Fprintf(r.out, "\nChapter %d of %s", p.Current.Chapter, p.Current.DocumentID)
	if p.Attempt > 0 {
		fmt.Fprintf(r.out, " (re-extraction %d)", p.Attempt)
	}
	fmt.Fprintln(r.out)

	if len(p.Delta.NewCharacters) > 0 {
		rows := make([][]string, 0, len(p.Delta.NewCharacters))
		for _, c := range p.Delta.NewCharacters {
			rows = append(rows, []string{
				c.CanonicalName, string(c.Gender), string(c.Role), fmt.Sprintf("%.2f", c.Confidence),
			})
		}
		fmt.Fprintln(r.out, "\nNew characters:")
		fmt.Fprintln(r.out, renderTable([]string{"Name", "Gender", "Role", "Confidence"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
	}

	if len(p.Delta.ChangedRelationships) > 0 {
		rows := make([][]string, 0, len(p.Delta.ChangedRelationships))
		for _, change := range p.Delta.ChangedRelationships {
			rel := change.Relationship
			rows = append(rows, []string{
				string(change.Kind), rel.CharacterA + " & " + rel.CharacterB, string(rel.Type), rel.StateLabel,
			})
		}
		fmt.Fprintln(r.out, "\nRelationship changes:")
		fmt.Fprintln(r.out, renderTable([]string{"Kind", "Pair", "Type", "State"}, rows, nil))
	}

	if len(p.Delta.NewTerms) > 0 {
		fmt.Fprintf(r.out, "\nNew glossary terms: %d\n", len(p.Delta.NewTerms))
	}
	if len(p.Delta.NewFlags) > 0 {
		fmt.Fprintf(r.out, "New narrative flags: %s\n", strings.Join(p.Delta.NewFlags, ", "))
	}
	for _, ambiguous := range p.Ambiguous {
		fmt.Fprintf(r.out, "! Ambiguous partial %q merged into %q (also matched: %s)\n",
			ambiguous.Partial, ambiguous.ChosenCanonical, strings.Join(ambiguous.OtherCandidates, ", "))
	}
	if len(p.Unresolved) > 0 {
		fmt.Fprintf(r.out, "! Unresolved single-token names: %s\n", strings.Join(p.Unresolved, ", "))
	}
	if p.Delta.Empty() {
		fmt.Fprintln(r.out, "No continuity changes against the previous chapter.")
	}
}

// loadCorrectedSnapshot reads an edited snapshot, keeping the original
// chapter identity so a stray edit cannot retarget the persistence key.
func loadCorrectedSnapshot(path string, current *schema.ChapterSnapshot) (*schema.ChapterSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var corrected schema.ChapterSnapshot
	if err := json.Unmarshal(data, &corrected); err != nil {
		return nil, fmt.Errorf("parse snapshot JSON: %w", err)
	}
	corrected.DocumentID = current.DocumentID
	corrected.Chapter = current.Chapter
	corrected.GeneratedAt = current.GeneratedAt
	corrected.UserCorrections = current.UserCorrections
	if err := corrected.Validate(); err != nil {
		return nil, err
	}
	return &corrected, nil
}
