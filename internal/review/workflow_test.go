package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tsumugi/internal/consolidate"
	"tsumugi/internal/contextcache"
	"tsumugi/internal/extraction"
	"tsumugi/internal/schema"
	"tsumugi/internal/series"
	"tsumugi/internal/snapshots"
)

type scriptedProvider struct {
	extractions map[int]*schema.RawExtraction
	err         error
	calls       int
	lastRequest extraction.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Extract(_ context.Context, req extraction.Request) (*schema.RawExtraction, error) {
	p.calls++
	p.lastRequest = req
	if p.err != nil {
		return nil, p.err
	}
	if raw, ok := p.extractions[req.Chapter]; ok {
		return raw, nil
	}
	return &schema.RawExtraction{}, nil
}

type scriptedReviewer struct {
	decisions []Decision
	seen      []Presentation
}

func (r *scriptedReviewer) Review(_ context.Context, p Presentation) (Decision, error) {
	r.seen = append(r.seen, p)
	if len(r.decisions) == 0 {
		return Decision{Action: ActionApprove}, nil
	}
	d := r.decisions[0]
	r.decisions = r.decisions[1:]
	return d, nil
}

func chapterExtraction(names ...string) *schema.RawExtraction {
	raw := &schema.RawExtraction{}
	for _, name := range names {
		raw.Characters = append(raw.Characters, schema.RawCandidate{Name: name, Confidence: 0.8})
	}
	return raw
}

func newTestWorkflow(t *testing.T, root string, provider extraction.Provider, reviewer Reviewer) *Workflow {
	t.Helper()
	return New(Options{
		LibraryRoot:    root,
		SourceLanguage: "ja",
		TargetLanguage: "en",
		MaxReextracts:  2,
	}, Deps{
		Provider:     provider,
		Consolidator: consolidate.New(consolidate.Options{MergeBonus: 0.1}, nil),
		Resolver:     series.NewResolver(root, nil),
		Reviewer:     reviewer,
	})
}

func TestProcessDocumentApprovesAndExportsPack(t *testing.T) {
	root := t.TempDir()
	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: {
			Characters: []schema.RawCandidate{
				{Name: "Tanaka Yuki", Confidence: 0.9},
			},
			Relationships: []schema.RawRelationship{},
			Terms: []schema.RawTerm{
				{Source: "魔力", Romaji: "maryoku", Translation: "mana"},
			},
			Flags: []string{"festival_announced"},
		},
		2: {
			Characters: []schema.RawCandidate{
				{Name: "Tanaka Yuki", Confidence: 0.9},
				{Name: "Sato Mei", Confidence: 0.7},
			},
			Relationships: []schema.RawRelationship{
				{NameA: "Tanaka Yuki", NameB: "Sato Mei", Type: "friendship", Confidence: 0.8},
			},
		},
	}}

	workflow := newTestWorkflow(t, root, provider, nil)
	pack, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{
		{Number: 1, Text: "Tanaka Yuki arrives."},
		{Number: 2, Text: "Tanaka Yuki meets Sato Mei."},
	})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if pack == nil {
		t.Fatal("pack is nil")
	}
	if pack.SeriesTitle != "bookworm" || pack.Volume != 1 {
		t.Errorf("pack attribution = %q vol %d", pack.SeriesTitle, pack.Volume)
	}
	if len(pack.Roster) != 2 {
		t.Errorf("roster = %v", pack.Roster)
	}
	if _, ok := pack.Relationships["Sato Mei|Tanaka Yuki"]; !ok {
		t.Errorf("relationships = %v", pack.Relationships)
	}
	if len(pack.History) != 2 || pack.History[1].NewCharacters[0] != "Sato Mei" {
		t.Errorf("history = %+v", pack.History)
	}

	// Pack is readable from disk for the next volume.
	saved, err := snapshots.LoadPack(root, "bookworm_vol_1")
	if err != nil || saved == nil {
		t.Fatalf("LoadPack = %v, %v", saved, err)
	}

	store, err := snapshots.Open(root, "bookworm_vol_1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
	count, err := store.Count(context.Background())
	if err != nil || count != 2 {
		t.Errorf("persisted count = %d, %v", count, err)
	}
}

func TestPackRetainsCharactersAbsentFromFinalChapter(t *testing.T) {
	root := t.TempDir()
	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Tanaka Yuki"),
		2: chapterExtraction("Sato Mei"),
	}}

	workflow := newTestWorkflow(t, root, provider, nil)
	pack, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{
		{Number: 1, Text: "Tanaka Yuki arrives."},
		{Number: 2, Text: "Sato Mei wanders alone."},
	})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if _, ok := pack.Roster["Tanaka Yuki"]; !ok {
		t.Errorf("roster lost a character absent from the final chapter: %v", pack.Roster)
	}
	if _, ok := pack.Roster["Sato Mei"]; !ok {
		t.Errorf("roster missing final-chapter character: %v", pack.Roster)
	}
}

func TestResumedRunExportsFullHistory(t *testing.T) {
	root := t.TempDir()
	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Tanaka Yuki"),
		2: chapterExtraction("Sato Mei"),
	}}

	first := newTestWorkflow(t, root, provider, nil)
	if _, err := first.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{
		{Number: 1, Text: "Tanaka Yuki arrives."},
	}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// A later invocation picks up at chapter 2; the exported pack must
	// still cover the earlier chapter.
	second := newTestWorkflow(t, root, provider, nil)
	pack, err := second.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{
		{Number: 2, Text: "Sato Mei wanders alone."},
	})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(pack.History) != 2 {
		t.Fatalf("history = %+v, want both chapters", pack.History)
	}
	if pack.History[0].Chapter != 1 || pack.History[1].Chapter != 2 {
		t.Errorf("history chapters = %+v", pack.History)
	}
	if _, ok := pack.Roster["Tanaka Yuki"]; !ok {
		t.Errorf("roster missing chapter 1 character: %v", pack.Roster)
	}
}

func TestCancellationStopsRemainingChapters(t *testing.T) {
	root := t.TempDir()
	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Tanaka Yuki"),
		2: chapterExtraction("Tanaka Yuki"),
		3: chapterExtraction("Tanaka Yuki"),
	}}
	reviewer := &scriptedReviewer{decisions: []Decision{
		{Action: ActionApprove},
		{Action: ActionApprove},
		{Action: ActionCancel},
	}}

	workflow := newTestWorkflow(t, root, provider, reviewer)
	chapters := make([]Chapter, 5)
	for i := range chapters {
		chapters[i] = Chapter{Number: i + 1, Text: "Tanaka Yuki."}
	}
	_, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_1", chapters)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}

	// Chapters 1 and 2 stay persisted; 3 through 5 were never written.
	store, err := snapshots.Open(root, "bookworm_vol_1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("persisted count = %d, want 2", count)
	}
	if pack, _ := snapshots.LoadPack(root, "bookworm_vol_1"); pack != nil {
		t.Error("cancelled document must not export a pack")
	}
}

func TestCorrectionIncrementsCounter(t *testing.T) {
	root := t.TempDir()
	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Tanaka Yuki"),
	}}
	corrected := &schema.ChapterSnapshot{
		DocumentID: "bookworm_vol_1",
		Chapter:    1,
		Characters: []schema.Character{
			{CanonicalName: "Tanaka Yuki", Role: schema.RoleProtagonist, Confidence: 1.0},
		},
	}
	reviewer := &scriptedReviewer{decisions: []Decision{
		{Action: ActionCorrect, Corrected: corrected},
	}}

	workflow := newTestWorkflow(t, root, provider, reviewer)
	if _, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{{Number: 1, Text: "text"}}); err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	store, err := snapshots.Open(root, "bookworm_vol_1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
	snap, err := store.Load(context.Background(), 1)
	if err != nil || snap == nil {
		t.Fatalf("Load = %v, %v", snap, err)
	}
	if !snap.ReviewedByUser || snap.UserCorrections != 1 {
		t.Errorf("reviewed=%v corrections=%d, want true/1", snap.ReviewedByUser, snap.UserCorrections)
	}
	if snap.Characters[0].Role != schema.RoleProtagonist {
		t.Errorf("corrected role not persisted: %+v", snap.Characters[0])
	}
}

func TestReExtractIsBounded(t *testing.T) {
	root := t.TempDir()
	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Tanaka Yuki"),
	}}
	reviewer := &scriptedReviewer{decisions: []Decision{
		{Action: ActionReExtract},
		{Action: ActionReExtract},
		{Action: ActionReExtract},
	}}

	workflow := newTestWorkflow(t, root, provider, reviewer)
	_, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{{Number: 1, Text: "text"}})
	if err == nil {
		t.Fatal("expected error after exhausting re-extractions")
	}
	if provider.calls != 3 {
		t.Errorf("extraction calls = %d, want initial plus two re-extracts", provider.calls)
	}
}

func TestReExtractRunsExtractionAgain(t *testing.T) {
	root := t.TempDir()
	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Tanaka Yuki"),
	}}
	reviewer := &scriptedReviewer{decisions: []Decision{
		{Action: ActionReExtract},
		{Action: ActionApprove},
	}}

	workflow := newTestWorkflow(t, root, provider, reviewer)
	if _, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{{Number: 1, Text: "text"}}); err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("extraction calls = %d, want 2", provider.calls)
	}
	if reviewer.seen[1].Attempt != 1 {
		t.Errorf("second presentation attempt = %d, want 1", reviewer.seen[1].Attempt)
	}
	// Review only ever happens from UnderReview, including after the
	// re-extract loop back through Extracted.
	for i, p := range reviewer.seen {
		if p.State != StateUnderReview {
			t.Errorf("presentation %d state = %s, want %s", i, p.State, StateUnderReview)
		}
	}
}

func TestExtractionFallback(t *testing.T) {
	root := t.TempDir()
	primary := &scriptedProvider{err: errors.New("api down")}
	fallback := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Tanaka Yuki"),
	}}

	workflow := New(Options{LibraryRoot: root, TargetLanguage: "en"}, Deps{
		Provider:     primary,
		Fallback:     fallback,
		Consolidator: consolidate.New(consolidate.Options{}, nil),
		Reviewer:     AutoApprover{},
	})
	pack, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{{Number: 1, Text: "text"}})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if fallback.calls != 1 {
		t.Errorf("fallback calls = %d", fallback.calls)
	}
	if _, ok := pack.Roster["Tanaka Yuki"]; !ok {
		t.Errorf("roster = %v", pack.Roster)
	}
}

func TestSequelInheritsPredecessorState(t *testing.T) {
	root := t.TempDir()
	predecessor := &schema.ContinuityPack{
		DocumentID:  "bookworm_vol_1",
		SeriesTitle: "bookworm",
		Volume:      1,
		Roster:      map[string]string{"Tanaka Yuki": "Tanaka Yuki"},
		Glossary: map[string]schema.GlossaryTerm{
			"maryoku": {Source: "魔力", Romaji: "maryoku", Preserve: true},
		},
	}
	if err := snapshots.SavePack(root, predecessor); err != nil {
		t.Fatalf("SavePack failed: %v", err)
	}

	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Sato Mei"),
	}}
	workflow := newTestWorkflow(t, root, provider, nil)
	pack, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_2", []Chapter{{Number: 1, Text: "Sato Mei."}})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	if len(provider.lastRequest.KnownNames) != 1 || provider.lastRequest.KnownNames[0] != "Tanaka Yuki" {
		t.Errorf("known names = %v, want inherited roster", provider.lastRequest.KnownNames)
	}
	if !pack.Glossary["maryoku"].Preserve {
		t.Errorf("glossary = %+v, want inherited preserve term carried forward", pack.Glossary)
	}
	if pack.Volume != 2 {
		t.Errorf("volume = %d", pack.Volume)
	}
}

func TestCacheStagedAfterPersist(t *testing.T) {
	root := t.TempDir()
	backend := &recordingBackend{}
	cache := contextcache.NewCoordinator(backend, "", "model-a", 0, nil)
	provider := &scriptedProvider{extractions: map[int]*schema.RawExtraction{
		1: chapterExtraction("Tanaka Yuki"),
		2: chapterExtraction("Tanaka Yuki"),
	}}

	workflow := New(Options{LibraryRoot: root, TargetLanguage: "en"}, Deps{
		Provider:     provider,
		Consolidator: consolidate.New(consolidate.Options{}, nil),
		Cache:        cache,
		Reviewer:     AutoApprover{},
	})
	_, err := workflow.ProcessDocument(context.Background(), "bookworm_vol_1", []Chapter{
		{Number: 1, Text: "a"},
		{Number: 2, Text: "b"},
	})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if backend.staged != 2 {
		t.Errorf("staged = %d, want one per persisted chapter", backend.staged)
	}
	if backend.invalidated != 1 {
		t.Errorf("invalidated = %d, want chapter 1's entry revoked before chapter 2's", backend.invalidated)
	}
}

type recordingBackend struct {
	staged      int
	invalidated int
}

func (b *recordingBackend) Stage(_ context.Context, _ contextcache.Payload, _ time.Duration) (string, error) {
	b.staged++
	return fmt.Sprintf("ref-%d", b.staged), nil
}

func (b *recordingBackend) Invalidate(context.Context, string) error {
	b.invalidated++
	return nil
}
