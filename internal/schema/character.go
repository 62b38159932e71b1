package schema

import "strings"

// Gender is the extracted gender of a character.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// ParseGender normalizes a raw gender string to a known value.
func ParseGender(value string) Gender {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Role is a character's narrative function.
type Role string

const (
	RoleProtagonist  Role = "protagonist"
	RoleRomanticLead Role = "romantic_lead"
	RoleFriend       Role = "friend"
	RoleMentor       Role = "mentor"
	RoleSupporting   Role = "supporting"
)

// ParseRole normalizes a raw role string, defaulting to supporting.
func ParseRole(value string) Role {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "protagonist", "main":
		return RoleProtagonist
	case "romantic_lead", "romantic lead", "love_interest", "love interest":
		return RoleRomanticLead
	case "friend":
		return RoleFriend
	case "mentor", "teacher":
		return RoleMentor
	default:
		return RoleSupporting
	}
}

// Character is one canonical identity within a snapshot. CanonicalName is the
// dedup key: "Family Given" order for multi-token names, single token where
// the text never yields a fuller form.
type Character struct {
	CanonicalName string  `json:"canonical_name"`
	SourceName    string  `json:"source_name,omitempty"`
	Gender        Gender  `json:"gender"`
	Role          Role    `json:"role"`
	Archetype     string  `json:"archetype,omitempty"`
	AgeGrade      string  `json:"age_grade,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// NameTokens splits the canonical name into its whitespace-separated tokens.
func (c Character) NameTokens() []string {
	return strings.Fields(c.CanonicalName)
}

// IsPartial reports whether the character still carries a single-token name.
func (c Character) IsPartial() bool {
	return len(c.NameTokens()) < 2
}

// ClampConfidence bounds a confidence score to [0, 1].
func ClampConfidence(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
