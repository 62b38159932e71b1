// Package delta compares two chapter snapshots and reports what the newer
// one introduced or changed. Computation is pure: neither snapshot is
// mutated, and comparing a snapshot against itself yields an empty delta.
package delta

import (
	"tsumugi/internal/schema"
)

// ChangeKind tags a relationship delta entry.
type ChangeKind string

const (
	ChangeNew     ChangeKind = "new"
	ChangeChanged ChangeKind = "changed"
)

// RelationshipChange is one new or changed relationship, keyed by the
// unordered character pair.
type RelationshipChange struct {
	Kind         ChangeKind
	Relationship schema.Relationship
	// Previous holds the prior entry for changed pairs.
	Previous *schema.Relationship
}

// Delta is the structured diff between two snapshots of the same document.
type Delta struct {
	NewCharacters        []schema.Character
	ChangedRelationships []RelationshipChange
	NewTerms             []schema.GlossaryTerm
	NewFlags             []string
}

// Empty reports whether the delta carries no changes in any category.
func (d Delta) Empty() bool {
	return len(d.NewCharacters) == 0 &&
		len(d.ChangedRelationships) == 0 &&
		len(d.NewTerms) == 0 &&
		len(d.NewFlags) == 0
}

// Compute diffs current against previous. A nil previous snapshot (chapter
// one, or an explicitly chosen baseline) reports everything as new.
func Compute(current, previous *schema.ChapterSnapshot) Delta {
	var d Delta
	if current == nil {
		return d
	}

	prevNames := make(map[string]struct{})
	prevPairs := make(map[string]schema.Relationship)
	prevTerms := make(map[string]struct{})
	prevFlags := make(map[string]struct{})
	if previous != nil {
		for _, c := range previous.Characters {
			prevNames[c.CanonicalName] = struct{}{}
		}
		for _, r := range previous.Relationships {
			prevPairs[r.PairKey()] = r
		}
		for _, t := range previous.Glossary {
			prevTerms[t.Key()] = struct{}{}
		}
		for _, f := range previous.Flags {
			prevFlags[f] = struct{}{}
		}
	}

	for _, c := range current.Characters {
		if _, known := prevNames[c.CanonicalName]; !known {
			d.NewCharacters = append(d.NewCharacters, c)
		}
	}

	for _, r := range current.Relationships {
		prev, known := prevPairs[r.PairKey()]
		switch {
		case !known:
			d.ChangedRelationships = append(d.ChangedRelationships, RelationshipChange{
				Kind:         ChangeNew,
				Relationship: r,
			})
		case !r.Comparable(prev):
			prevCopy := prev
			d.ChangedRelationships = append(d.ChangedRelationships, RelationshipChange{
				Kind:         ChangeChanged,
				Relationship: r,
				Previous:     &prevCopy,
			})
		}
	}

	for _, t := range current.Glossary {
		if _, known := prevTerms[t.Key()]; !known {
			d.NewTerms = append(d.NewTerms, t)
		}
	}

	for _, f := range current.Flags {
		if _, known := prevFlags[f]; !known {
			d.NewFlags = append(d.NewFlags, f)
		}
	}

	return d
}
