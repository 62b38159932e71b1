package extraction

import (
	"context"

	"tsumugi/internal/schema"
)

// Request carries one chapter's text plus enough metadata for the provider
// to scope its extraction.
type Request struct {
	DocumentID     string
	Chapter        int
	Text           string
	SourceLanguage string
	TargetLanguage string
	// KnownNames primes the provider with canonical names already in the
	// document's roster so recurring characters keep stable spellings.
	KnownNames []string
}

// Provider supplies raw candidate entities for a chapter. Implementations
// must return normalized candidates; consolidation never sees provider wire
// formats.
type Provider interface {
	Name() string
	Extract(ctx context.Context, req Request) (*schema.RawExtraction, error)
}

// normalizeExtraction drops unusable candidates and clamps the rest in
// place. Shared by every provider on its way out.
func normalizeExtraction(raw *schema.RawExtraction) *schema.RawExtraction {
	if raw == nil {
		return &schema.RawExtraction{}
	}
	kept := raw.Characters[:0]
	for i := range raw.Characters {
		if raw.Characters[i].Normalize() {
			kept = append(kept, raw.Characters[i])
		}
	}
	raw.Characters = kept

	rels := raw.Relationships[:0]
	for _, rel := range raw.Relationships {
		if rel.NameA == "" || rel.NameB == "" || rel.NameA == rel.NameB {
			continue
		}
		rel.Confidence = schema.ClampConfidence(rel.Confidence)
		rels = append(rels, rel)
	}
	raw.Relationships = rels

	terms := raw.Terms[:0]
	for _, term := range raw.Terms {
		if term.Source == "" {
			continue
		}
		terms = append(terms, term)
	}
	raw.Terms = terms
	return raw
}
