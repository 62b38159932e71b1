package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// ChapterSnapshot is the structured entity state extracted from one processed
// chapter. Persisted snapshots are never edited in place; the only mutable
// window is between extraction and persistence, while the chapter is under
// review.
type ChapterSnapshot struct {
	DocumentID      string         `json:"document_id"`
	Chapter         int            `json:"chapter"`
	GeneratedAt     time.Time      `json:"generated_at"`
	ReviewedByUser  bool           `json:"reviewed_by_user"`
	UserCorrections int            `json:"user_corrections"`
	Characters      []Character    `json:"characters"`
	Relationships   []Relationship `json:"relationships"`
	Glossary        []GlossaryTerm `json:"glossary"`
	Flags           []string       `json:"flags"`
}

// UnitID returns the stable per-unit identifier.
func (s *ChapterSnapshot) UnitID() string {
	return fmt.Sprintf("%s/%d", s.DocumentID, s.Chapter)
}

// FindCharacter returns the character with the given canonical name.
func (s *ChapterSnapshot) FindCharacter(canonicalName string) (Character, bool) {
	for _, c := range s.Characters {
		if c.CanonicalName == canonicalName {
			return c, true
		}
	}
	return Character{}, false
}

// CharacterNames returns the canonical names present in the snapshot.
func (s *ChapterSnapshot) CharacterNames() []string {
	names := make([]string, 0, len(s.Characters))
	for _, c := range s.Characters {
		names = append(names, c.CanonicalName)
	}
	return names
}

// Validate enforces the per-snapshot invariants: non-empty identity,
// canonical-name uniqueness, and relationship pair-key uniqueness.
func (s *ChapterSnapshot) Validate() error {
	if strings.TrimSpace(s.DocumentID) == "" {
		return fmt.Errorf("snapshot: document id is empty")
	}
	if s.Chapter < 0 {
		return fmt.Errorf("snapshot %s: negative chapter number", s.UnitID())
	}

	seenNames := make(map[string]struct{}, len(s.Characters))
	for _, c := range s.Characters {
		name := strings.TrimSpace(c.CanonicalName)
		if name == "" {
			return fmt.Errorf("snapshot %s: character with empty canonical name", s.UnitID())
		}
		if _, dup := seenNames[name]; dup {
			return fmt.Errorf("snapshot %s: duplicate canonical name %q", s.UnitID(), name)
		}
		seenNames[name] = struct{}{}
	}

	seenPairs := make(map[string]struct{}, len(s.Relationships))
	for _, r := range s.Relationships {
		key := r.PairKey()
		if _, dup := seenPairs[key]; dup {
			return fmt.Errorf("snapshot %s: duplicate relationship pair %q", s.UnitID(), key)
		}
		seenPairs[key] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy. Review corrections operate on a clone so the
// extracted snapshot survives a rejected edit.
func (s *ChapterSnapshot) Clone() *ChapterSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Characters = slices.Clone(s.Characters)
	out.Relationships = slices.Clone(s.Relationships)
	out.Flags = slices.Clone(s.Flags)
	out.Glossary = make([]GlossaryTerm, len(s.Glossary))
	for i, term := range s.Glossary {
		cp := term
		if term.Translations != nil {
			cp.Translations = maps.Clone(term.Translations)
		}
		out.Glossary[i] = cp
	}
	return &out
}
