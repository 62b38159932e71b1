package schema

import "strings"

// RawCandidate is the normalized shape every upstream extraction source is
// reduced to at the collaborator boundary. Internal logic never sees the
// collaborator's own wire format.
type RawCandidate struct {
	Name       string  `json:"name"`
	SourceName string  `json:"source_name,omitempty"`
	Gender     Gender  `json:"gender,omitempty"`
	Role       Role    `json:"role,omitempty"`
	Archetype  string  `json:"archetype,omitempty"`
	AgeGrade   string  `json:"age_grade,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Normalize trims the name and clamps confidence; returns false when the
// candidate is unusable (empty name).
func (rc *RawCandidate) Normalize() bool {
	rc.Name = strings.Join(strings.Fields(rc.Name), " ")
	if rc.Name == "" {
		return false
	}
	rc.Confidence = ClampConfidence(rc.Confidence)
	if rc.Gender == "" {
		rc.Gender = GenderUnknown
	}
	if rc.Role == "" {
		rc.Role = RoleSupporting
	}
	return true
}

// RawRelationship is a candidate relationship as reported by extraction.
type RawRelationship struct {
	NameA      string  `json:"name_a"`
	NameB      string  `json:"name_b"`
	Type       string  `json:"type,omitempty"`
	Dynamics   string  `json:"dynamics,omitempty"`
	Confidence float64 `json:"confidence"`
}

// RawTerm is a candidate glossary entry as reported by extraction.
type RawTerm struct {
	Source      string `json:"source"`
	Romaji      string `json:"romaji,omitempty"`
	Translation string `json:"translation,omitempty"`
	Preserve    bool   `json:"preserve"`
}

// RawExtraction bundles everything one extraction pass reports for a chapter.
type RawExtraction struct {
	Characters    []RawCandidate    `json:"characters"`
	Relationships []RawRelationship `json:"relationships,omitempty"`
	Terms         []RawTerm         `json:"terms,omitempty"`
	Flags         []string          `json:"flags,omitempty"`
}
