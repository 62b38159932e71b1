package schema

import "time"

// ChapterDiscovery records what one chapter introduced, forming the pack's
// per-unit history.
type ChapterDiscovery struct {
	Chapter       int      `json:"chapter"`
	NewCharacters []string `json:"new_characters,omitempty"`
	NewTerms      []string `json:"new_terms,omitempty"`
	NewFlags      []string `json:"new_flags,omitempty"`
}

// ContinuityPack is the exported end-of-document summary consumed when a
// sequel volume is processed. Aggregated over every persisted chapter
// snapshot plus document metadata; read-only once written, superseded (not
// deleted) if the document is reprocessed.
type ContinuityPack struct {
	DocumentID  string    `json:"document_id"`
	SeriesTitle string    `json:"series_title"`
	Volume      int       `json:"volume"`
	GeneratedAt time.Time `json:"generated_at"`
	// Roster maps canonical name to the target-language rendering.
	Roster        map[string]string       `json:"roster"`
	Relationships map[string]Relationship `json:"relationships"`
	Glossary      map[string]GlossaryTerm `json:"glossary"`
	Flags         []string                `json:"flags,omitempty"`
	History       []ChapterDiscovery      `json:"history,omitempty"`
}

// BuildPack aggregates a document's persisted snapshots, supplied in chapter
// order, into its continuity pack. The roster, relationships, and glossary
// are the union across all chapters with later chapters winning on key
// collision, so a character absent from the final chapter still inherits.
// History records what each chapter introduced relative to the chapters
// before it. Roster renderings default to the canonical name itself.
func BuildPack(snaps []*ChapterSnapshot, seriesTitle string, volume int) *ContinuityPack {
	pack := &ContinuityPack{
		SeriesTitle:   seriesTitle,
		Volume:        volume,
		GeneratedAt:   time.Now().UTC(),
		Roster:        make(map[string]string),
		Relationships: make(map[string]Relationship),
		Glossary:      make(map[string]GlossaryTerm),
	}
	if len(snaps) == 0 {
		return pack
	}
	pack.DocumentID = snaps[0].DocumentID

	seenFlags := make(map[string]struct{})
	for _, snap := range snaps {
		discovery := ChapterDiscovery{Chapter: snap.Chapter}
		for _, c := range snap.Characters {
			if _, known := pack.Roster[c.CanonicalName]; !known {
				discovery.NewCharacters = append(discovery.NewCharacters, c.CanonicalName)
			}
			pack.Roster[c.CanonicalName] = c.CanonicalName
		}
		for _, r := range snap.Relationships {
			pack.Relationships[r.PairKey()] = r
		}
		for _, term := range snap.Glossary {
			key := term.Key()
			if _, known := pack.Glossary[key]; !known {
				discovery.NewTerms = append(discovery.NewTerms, key)
			}
			pack.Glossary[key] = term
		}
		for _, flag := range snap.Flags {
			if _, known := seenFlags[flag]; known {
				continue
			}
			seenFlags[flag] = struct{}{}
			pack.Flags = append(pack.Flags, flag)
			discovery.NewFlags = append(discovery.NewFlags, flag)
		}
		pack.History = append(pack.History, discovery)
	}
	return pack
}
