package schema

import (
	"testing"
	"time"
)

func sampleSnapshot() *ChapterSnapshot {
	return &ChapterSnapshot{
		DocumentID:  "bookworm_vol_1",
		Chapter:     3,
		GeneratedAt: time.Now().UTC(),
		Characters: []Character{
			{CanonicalName: "Tanaka Yuki", Gender: GenderFemale, Role: RoleProtagonist, Confidence: 0.9},
			{CanonicalName: "Sato Mei", Gender: GenderFemale, Role: RoleFriend, Confidence: 0.7},
		},
		Relationships: []Relationship{
			{CharacterA: "Tanaka Yuki", CharacterB: "Sato Mei", Type: RelFriendship, Intimacy: 6, Confidence: 0.8},
		},
		Glossary: []GlossaryTerm{
			{Source: "魔力", Romaji: "maryoku", Translations: map[string]string{"en": "mana"}},
		},
		Flags: []string{"festival_announced"},
	}
}

func TestSnapshotValidate(t *testing.T) {
	snap := sampleSnapshot()
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestSnapshotValidateDuplicateName(t *testing.T) {
	snap := sampleSnapshot()
	snap.Characters = append(snap.Characters, Character{CanonicalName: "Tanaka Yuki"})
	if err := snap.Validate(); err == nil {
		t.Fatal("Validate() should reject duplicate canonical names")
	}
}

func TestSnapshotValidateDuplicatePair(t *testing.T) {
	snap := sampleSnapshot()
	// Same pair in reversed order must still collide.
	snap.Relationships = append(snap.Relationships, Relationship{
		CharacterA: "Sato Mei", CharacterB: "Tanaka Yuki", Type: RelRivalry,
	})
	if err := snap.Validate(); err == nil {
		t.Fatal("Validate() should reject duplicate pair keys")
	}
}

func TestPairKeySymmetry(t *testing.T) {
	ab := Relationship{CharacterA: "Tanaka Yuki", CharacterB: "Sato Mei"}
	ba := Relationship{CharacterA: "Sato Mei", CharacterB: "Tanaka Yuki"}
	if ab.PairKey() != ba.PairKey() {
		t.Errorf("pair keys differ: %q vs %q", ab.PairKey(), ba.PairKey())
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	snap := sampleSnapshot()
	clone := snap.Clone()

	clone.Characters[0].Confidence = 0.1
	clone.Glossary[0].Translations["en"] = "magic power"
	clone.Flags[0] = "changed"

	if snap.Characters[0].Confidence != 0.9 {
		t.Error("clone mutated original character")
	}
	if snap.Glossary[0].Translations["en"] != "mana" {
		t.Error("clone mutated original glossary translations")
	}
	if snap.Flags[0] != "festival_announced" {
		t.Error("clone mutated original flags")
	}
}

func TestGlossaryTermKey(t *testing.T) {
	withRomaji := GlossaryTerm{Source: "魔力", Romaji: "Maryoku"}
	if withRomaji.Key() != "maryoku" {
		t.Errorf("Key() = %q, want romaji form", withRomaji.Key())
	}
	withoutRomaji := GlossaryTerm{Source: "魔力"}
	if withoutRomaji.Key() != "魔力" {
		t.Errorf("Key() = %q, want source term", withoutRomaji.Key())
	}
}

func TestRawCandidateNormalize(t *testing.T) {
	rc := RawCandidate{Name: "  Tanaka   Yuki ", Confidence: 1.4}
	if !rc.Normalize() {
		t.Fatal("Normalize() = false, want true")
	}
	if rc.Name != "Tanaka Yuki" {
		t.Errorf("Name = %q, want collapsed whitespace", rc.Name)
	}
	if rc.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want clamped to 1.0", rc.Confidence)
	}
	if rc.Gender != GenderUnknown || rc.Role != RoleSupporting {
		t.Errorf("defaults not applied: gender=%q role=%q", rc.Gender, rc.Role)
	}

	empty := RawCandidate{Name: "   "}
	if empty.Normalize() {
		t.Error("Normalize() should reject empty names")
	}
}

func TestBuildPack(t *testing.T) {
	first := &ChapterSnapshot{
		DocumentID: "bookworm_vol_1",
		Chapter:    1,
		Characters: []Character{
			{CanonicalName: "Tanaka Yuki", Role: RoleProtagonist, Confidence: 0.9},
		},
		Glossary: []GlossaryTerm{
			{Source: "魔力", Romaji: "maryoku", Translations: map[string]string{"en": "mana"}},
		},
	}
	final := sampleSnapshot()
	pack := BuildPack([]*ChapterSnapshot{first, final}, "Ascendance of a Bookworm", 1)

	if pack.DocumentID != "bookworm_vol_1" {
		t.Errorf("DocumentID = %q", pack.DocumentID)
	}
	if _, ok := pack.Roster["Tanaka Yuki"]; !ok {
		t.Error("roster missing Tanaka Yuki")
	}
	if _, ok := pack.Relationships[PairKey("Tanaka Yuki", "Sato Mei")]; !ok {
		t.Error("relationships missing pair")
	}
	if _, ok := pack.Glossary["maryoku"]; !ok {
		t.Error("glossary missing maryoku")
	}
	if len(pack.History) != 2 {
		t.Errorf("history length = %d, want 2", len(pack.History))
	}
	if got := pack.History[0].NewCharacters; len(got) != 1 || got[0] != "Tanaka Yuki" {
		t.Errorf("chapter 1 discoveries = %v", got)
	}
	if got := pack.History[1].NewCharacters; len(got) != 1 || got[0] != "Sato Mei" {
		t.Errorf("chapter 3 discoveries = %v", got)
	}
	if got := pack.History[1].NewFlags; len(got) != 1 || got[0] != "festival_announced" {
		t.Errorf("chapter 3 new flags = %v", got)
	}
}

func TestBuildPackKeepsCharactersAbsentFromFinalChapter(t *testing.T) {
	chapters := []*ChapterSnapshot{
		{
			DocumentID: "bookworm_vol_1",
			Chapter:    1,
			Characters: []Character{{CanonicalName: "Tanaka Yuki", Confidence: 0.9}},
			Relationships: []Relationship{
				{CharacterA: "Tanaka Yuki", CharacterB: "Sato Mei", Type: RelFriendship, Confidence: 0.8},
			},
		},
		{
			DocumentID: "bookworm_vol_1",
			Chapter:    2,
			Characters: []Character{{CanonicalName: "Sato Mei", Confidence: 0.7}},
		},
	}
	pack := BuildPack(chapters, "bookworm", 1)

	if _, ok := pack.Roster["Tanaka Yuki"]; !ok {
		t.Error("character from an earlier chapter missing from roster")
	}
	if _, ok := pack.Roster["Sato Mei"]; !ok {
		t.Error("final-chapter character missing from roster")
	}
	if _, ok := pack.Relationships[PairKey("Tanaka Yuki", "Sato Mei")]; !ok {
		t.Error("relationship from an earlier chapter missing")
	}
}

func TestBuildPackLaterChapterWinsOnCollision(t *testing.T) {
	chapters := []*ChapterSnapshot{
		{
			DocumentID: "doc",
			Chapter:    1,
			Glossary:   []GlossaryTerm{{Source: "魔力", Romaji: "maryoku", Translations: map[string]string{"en": "magic power"}}},
		},
		{
			DocumentID: "doc",
			Chapter:    2,
			Glossary:   []GlossaryTerm{{Source: "魔力", Romaji: "maryoku", Translations: map[string]string{"en": "mana"}}},
		},
	}
	pack := BuildPack(chapters, "doc", 1)

	term, ok := pack.Glossary["maryoku"]
	if !ok {
		t.Fatal("glossary missing maryoku")
	}
	if got := term.Translations["en"]; got != "mana" {
		t.Errorf("expected the later chapter's rendering, got %q", got)
	}
	// Only the first chapter counts it as a discovery.
	if got := pack.History[1].NewTerms; len(got) != 0 {
		t.Errorf("chapter 2 should introduce no terms, got %v", got)
	}
}
