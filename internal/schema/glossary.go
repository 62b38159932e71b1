package schema

import "strings"

// GlossaryTerm is a specialized vocabulary entry carried across chapters.
type GlossaryTerm struct {
	Source   string `json:"source"`
	Romaji   string `json:"romaji,omitempty"`
	// Translations maps target language code to the chosen rendering.
	Translations map[string]string `json:"translations,omitempty"`
	// Preserve means "do not translate, keep as-is."
	Preserve bool `json:"preserve"`
}

// Key returns the dedup key: the romanized form when present, else the
// source-language term.
func (t GlossaryTerm) Key() string {
	if romaji := strings.TrimSpace(t.Romaji); romaji != "" {
		return strings.ToLower(romaji)
	}
	return strings.TrimSpace(t.Source)
}

// TranslationFor returns the rendering for a target language, or the source
// term itself for preserve-flagged entries.
func (t GlossaryTerm) TranslationFor(lang string) string {
	if t.Preserve {
		return t.Source
	}
	if t.Translations == nil {
		return ""
	}
	return t.Translations[strings.ToLower(strings.TrimSpace(lang))]
}
