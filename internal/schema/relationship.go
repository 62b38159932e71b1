package schema

import "strings"

// RelationshipType classifies the bond between two characters.
type RelationshipType string

const (
	RelRomance       RelationshipType = "romance"
	RelFriendship    RelationshipType = "friendship"
	RelFamily        RelationshipType = "family"
	RelRivalry       RelationshipType = "rivalry"
	RelMentorStudent RelationshipType = "mentor_student"
	RelAcquaintance  RelationshipType = "acquaintance"
	RelPeer          RelationshipType = "peer"
	RelUnknown       RelationshipType = "unknown"
)

// ParseRelationshipType normalizes a raw type string to a known value.
func ParseRelationshipType(value string) RelationshipType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "romance", "romantic":
		return RelRomance
	case "friendship", "friends", "friend":
		return RelFriendship
	case "family", "sibling", "siblings", "parent":
		return RelFamily
	case "rivalry", "rival", "rivals":
		return RelRivalry
	case "mentor_student", "mentor-student", "mentor":
		return RelMentorStudent
	case "acquaintance", "acquaintances":
		return RelAcquaintance
	case "peer", "peers", "classmate", "classmates", "coworker":
		return RelPeer
	default:
		return RelUnknown
	}
}

// Stability describes how a relationship moves across chapters.
type Stability string

const (
	StabilityFlat          Stability = "flat"
	StabilityEvolving      Stability = "evolving"
	StabilityBinaryTrigger Stability = "binary_trigger"
)

// Relationship is one unordered character pair within a snapshot. The pair
// key is direction-independent; CharacterA/CharacterB preserve the order the
// extraction reported, which matters only for AddressPairing.
type Relationship struct {
	CharacterA string           `json:"character_a"`
	CharacterB string           `json:"character_b"`
	Type       RelationshipType `json:"type"`
	Dynamics   string           `json:"dynamics,omitempty"`
	Stability  Stability        `json:"stability,omitempty"`
	Intimacy   int              `json:"intimacy"`
	StateLabel string           `json:"state_label,omitempty"`
	// AddressPairing records how A addresses B and vice versa for target
	// languages with status-marked address terms ("Tanaka-senpai / Yuki").
	AddressPairing string  `json:"address_pairing,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// PairKey returns the unordered dedup key for the relationship's character
// pair: the two canonical names lexicographically sorted and joined.
func (r Relationship) PairKey() string {
	return PairKey(r.CharacterA, r.CharacterB)
}

// PairKey builds the unordered dedup key for any two canonical names.
func PairKey(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Comparable reports whether two relationship entries for the same pair carry
// the same narrative content. Confidence is deliberately excluded; confidence
// drift alone is not a story change.
func (r Relationship) Comparable(other Relationship) bool {
	return r.Type == other.Type &&
		r.Dynamics == other.Dynamics &&
		r.Stability == other.Stability &&
		r.Intimacy == other.Intimacy &&
		r.StateLabel == other.StateLabel &&
		r.AddressPairing == other.AddressPairing
}
