package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"tsumugi/internal/consolidate"
	"tsumugi/internal/contextcache"
	"tsumugi/internal/delta"
	"tsumugi/internal/extraction"
	"tsumugi/internal/logging"
	"tsumugi/internal/schema"
	"tsumugi/internal/series"
	"tsumugi/internal/services"
	"tsumugi/internal/snapshots"
)

// ErrCancelled reports a user-driven cancellation. The document's remaining
// chapters are not processed; already persisted snapshots are untouched.
var ErrCancelled = errors.New("review cancelled")

// Chapter is one processing unit: a sequence number and its full text.
type Chapter struct {
	Number int
	Text   string
}

// Options tunes the workflow.
type Options struct {
	LibraryRoot    string
	SourceLanguage string
	TargetLanguage string
	// MaxReextracts bounds how often a reviewer may send one chapter back
	// to extraction.
	MaxReextracts int
}

// Deps are the workflow's collaborators. Fallback may be nil; Cache and
// Resolver may be nil when caching or series seeding is disabled.
type Deps struct {
	Provider     extraction.Provider
	Fallback     extraction.Provider
	Consolidator *consolidate.Consolidator
	Cache        *contextcache.Coordinator
	Resolver     *series.Resolver
	Reviewer     Reviewer
	Logger       *slog.Logger
}

// Workflow sequences extraction, consolidation, delta, review, persistence,
// and cache staging for every chapter of a document, strictly in order.
type Workflow struct {
	opts Options
	deps Deps
}

// New constructs a workflow. A nil reviewer defaults to auto-approval.
func New(opts Options, deps Deps) *Workflow {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	deps.Logger = logging.NewComponentLogger(deps.Logger, "review")
	if deps.Reviewer == nil {
		deps.Reviewer = AutoApprover{}
	}
	return &Workflow{opts: opts, deps: deps}
}

// ProcessDocument runs every chapter in sequence, then aggregates the
// document into its continuity pack. Cancellation or a persistence failure
// stops the run; chapters persisted before the stop remain valid.
func (w *Workflow) ProcessDocument(ctx context.Context, documentID string, chapters []Chapter) (*schema.ContinuityPack, error) {
	if len(chapters) == 0 {
		return nil, services.Wrap(services.ErrValidation, "review", "process document", "no chapters supplied", nil)
	}
	ctx = services.WithDocumentID(ctx, documentID)
	log := logging.WithContext(ctx, w.deps.Logger)

	store, err := snapshots.Open(w.opts.LibraryRoot, documentID)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	seriesTitle := documentID
	volume := 1
	if detection, ok := series.DetectSeries(documentID); ok {
		seriesTitle = detection.SeriesTitle
		volume = detection.Sequence
	}

	inherited, err := w.loadInheritedState(ctx, log, seriesTitle, volume)
	if err != nil {
		return nil, err
	}

	for _, chapter := range chapters {
		snap, d, err := w.processChapter(ctx, store, chapter, inherited)
		if err != nil {
			return nil, err
		}
		log.Info("chapter persisted",
			logging.Int(logging.FieldChapter, chapter.Number),
			logging.Int("characters", len(snap.Characters)),
			logging.Int("new_characters", len(d.NewCharacters)))
	}

	// Aggregate over every persisted chapter, not just this invocation's,
	// so a resumed run still exports the document's full history.
	persisted, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	pack := schema.BuildPack(persisted, seriesTitle, volume)
	if err := snapshots.SavePack(w.opts.LibraryRoot, pack); err != nil {
		return nil, err
	}
	log.Info("continuity pack exported",
		logging.String("series_title", seriesTitle),
		logging.Int("volume", volume),
		logging.Int("chapters", len(pack.History)),
		logging.Int("roster_size", len(pack.Roster)))
	return pack, nil
}

// loadInheritedState seeds a sequel volume from its predecessor's pack.
// Absence of a predecessor is a series opener, never an error.
func (w *Workflow) loadInheritedState(ctx context.Context, log *slog.Logger, seriesTitle string, volume int) (*schema.ContinuityPack, error) {
	if w.deps.Resolver == nil || volume <= 1 {
		return nil, nil
	}
	predecessor, err := w.deps.Resolver.FindPredecessor(ctx, seriesTitle, volume)
	if err != nil {
		return nil, err
	}
	if predecessor == nil {
		return nil, nil
	}
	inherited, err := w.deps.Resolver.LoadInheritableState(ctx, predecessor)
	if err != nil {
		return nil, err
	}
	if inherited != nil {
		log.Info("seeding from predecessor volume",
			logging.String("predecessor", predecessor.DocumentID),
			logging.Int("roster_size", len(inherited.Roster)),
			logging.Int("glossary_size", len(inherited.Glossary)))
	}
	return inherited, nil
}

func (w *Workflow) processChapter(ctx context.Context, store *snapshots.Store, chapter Chapter, inherited *schema.ContinuityPack) (*schema.ChapterSnapshot, delta.Delta, error) {
	ctx = services.WithChapter(ctx, chapter.Number)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	log := logging.WithContext(ctx, w.deps.Logger)

	previous, err := store.Load(ctx, chapter.Number-1)
	if err != nil {
		return nil, delta.Delta{}, err
	}
	// A re-persist of an already reviewed chapter keeps its correction count.
	existing, err := store.Load(ctx, chapter.Number)
	if err != nil {
		return nil, delta.Delta{}, err
	}

	knownNames := rosterNames(previous, inherited)

	state := StateExtracted
	for attempt := 0; ; attempt++ {
		raw, err := w.extract(ctx, log, chapter, knownNames)
		if err != nil {
			return nil, delta.Delta{}, err
		}

		result := w.deps.Consolidator.Consolidate(ctx, raw.Characters, chapter.Text)
		current := w.buildSnapshot(store.DocumentID(), chapter, result.Characters, raw, previous, inherited)
		if existing != nil {
			current.UserCorrections = existing.UserCorrections
			current.ReviewedByUser = existing.ReviewedByUser
		}
		d := delta.Compute(current, previous)

		if state, err = advance(state, StateUnderReview); err != nil {
			return nil, delta.Delta{}, err
		}
		decision, err := w.deps.Reviewer.Review(ctx, Presentation{
			State:      state,
			Current:    current,
			Previous:   previous,
			Delta:      d,
			Ambiguous:  result.Ambiguous,
			Expanded:   result.Expanded,
			Unresolved: result.Unresolved,
			Attempt:    attempt,
		})
		if err != nil {
			return nil, delta.Delta{}, services.Wrap(services.ErrExternalTool, "review", "review chapter",
				fmt.Sprintf("chapter %d", chapter.Number), err)
		}

		switch decision.Action {
		case ActionApprove:
			if state, err = advance(state, StateApproved); err != nil {
				return nil, delta.Delta{}, err
			}
			return w.persist(ctx, log, store, current, d, state)

		case ActionCorrect:
			if state, err = advance(state, StateCorrected); err != nil {
				return nil, delta.Delta{}, err
			}
			corrected := decision.Corrected
			if corrected == nil {
				corrected = current
			}
			corrected.ReviewedByUser = true
			corrected.UserCorrections = current.UserCorrections + 1
			d = delta.Compute(corrected, previous)
			return w.persist(ctx, log, store, corrected, d, state)

		case ActionReExtract:
			if attempt >= w.maxReextracts() {
				return nil, delta.Delta{}, services.Wrap(services.ErrValidation, "review", "review chapter",
					fmt.Sprintf("chapter %d exceeded %d re-extractions", chapter.Number, w.maxReextracts()), nil)
			}
			if state, err = advance(state, StateExtracted); err != nil {
				return nil, delta.Delta{}, err
			}
			log.Info("re-extracting chapter", logging.Int("attempt", attempt+1))
			continue

		case ActionCancel:
			if state, err = advance(state, StateCancelled); err != nil {
				return nil, delta.Delta{}, err
			}
			logging.WarnWithContext(log, "document cancelled during review", "review_cancelled",
				logging.Int(logging.FieldChapter, chapter.Number),
				logging.String("error_hint", "re-run processing to resume from this chapter"),
				logging.String("impact", "remaining chapters are not processed"))
			return nil, delta.Delta{}, ErrCancelled

		default:
			return nil, delta.Delta{}, services.Wrap(services.ErrValidation, "review", "review chapter",
				fmt.Sprintf("unknown review action %q", decision.Action), nil)
		}
	}
}

// extract runs the primary provider, falling back to the heuristic one when
// the primary fails. A fallback failure is final.
func (w *Workflow) extract(ctx context.Context, log *slog.Logger, chapter Chapter, knownNames []string) (*schema.RawExtraction, error) {
	req := extraction.Request{
		DocumentID:     documentIDFrom(ctx),
		Chapter:        chapter.Number,
		Text:           chapter.Text,
		SourceLanguage: w.opts.SourceLanguage,
		TargetLanguage: w.opts.TargetLanguage,
		KnownNames:     knownNames,
	}
	raw, err := w.deps.Provider.Extract(ctx, req)
	if err == nil {
		return raw, nil
	}
	if w.deps.Fallback == nil {
		return nil, err
	}
	logging.WarnWithContext(log, "primary extraction failed, using fallback", "extraction_fallback",
		logging.String("provider", w.deps.Provider.Name()),
		logging.Error(err),
		logging.String("error_hint", "check the extraction API configuration"),
		logging.String("impact", "heuristic candidates carry lower confidence"))
	return w.deps.Fallback.Extract(ctx, req)
}

// persist writes the snapshot, then stages the next unit's cache. Staging is
// best-effort; persistence failures are fatal for the document. The caller's
// state must be one the transition table allows into Persisted.
func (w *Workflow) persist(ctx context.Context, log *slog.Logger, store *snapshots.Store, snap *schema.ChapterSnapshot, d delta.Delta, state State) (*schema.ChapterSnapshot, delta.Delta, error) {
	if _, err := advance(state, StatePersisted); err != nil {
		return nil, delta.Delta{}, err
	}
	if err := store.Persist(ctx, snap); err != nil {
		logging.ErrorWithContext(log, "snapshot persistence failed", "persist_failed",
			logging.Int(logging.FieldChapter, snap.Chapter),
			logging.Error(err),
			logging.String("error_hint", "check the library storage root"),
			logging.String("impact", "document processing stops at this chapter"))
		return nil, delta.Delta{}, err
	}
	if w.deps.Cache != nil {
		w.deps.Cache.StageForNextUnit(ctx, snap)
	}
	return snap, d, nil
}

// buildSnapshot assembles the chapter snapshot from consolidated characters
// and the remaining raw extraction output, applying the snapshot invariants
// (unique names, unique pair keys, single glossary key).
func (w *Workflow) buildSnapshot(documentID string, chapter Chapter, characters []schema.Character, raw *schema.RawExtraction, previous *schema.ChapterSnapshot, inherited *schema.ContinuityPack) *schema.ChapterSnapshot {
	snap := &schema.ChapterSnapshot{
		DocumentID:  documentID,
		Chapter:     chapter.Number,
		GeneratedAt: time.Now().UTC(),
		Characters:  characters,
	}

	seenPairs := make(map[string]struct{})
	for _, rel := range raw.Relationships {
		a := resolveName(characters, rel.NameA)
		b := resolveName(characters, rel.NameB)
		if a == b {
			continue
		}
		key := schema.PairKey(a, b)
		if _, dup := seenPairs[key]; dup {
			continue
		}
		seenPairs[key] = struct{}{}
		snap.Relationships = append(snap.Relationships, schema.Relationship{
			CharacterA: a,
			CharacterB: b,
			Type:       schema.ParseRelationshipType(rel.Type),
			Dynamics:   rel.Dynamics,
			Confidence: schema.ClampConfidence(rel.Confidence),
		})
	}

	seenTerms := make(map[string]struct{})
	for _, term := range raw.Terms {
		entry := schema.GlossaryTerm{
			Source:   term.Source,
			Romaji:   term.Romaji,
			Preserve: term.Preserve,
		}
		if term.Translation != "" && w.opts.TargetLanguage != "" {
			entry.Translations = map[string]string{w.opts.TargetLanguage: term.Translation}
		}
		key := entry.Key()
		if _, dup := seenTerms[key]; dup {
			continue
		}
		seenTerms[key] = struct{}{}
		snap.Glossary = append(snap.Glossary, entry)
	}
	// The opening chapter of a sequel carries the inherited glossary forward
	// so established renderings never regress.
	if previous == nil && inherited != nil {
		for _, term := range inherited.Glossary {
			key := term.Key()
			if _, dup := seenTerms[key]; dup {
				continue
			}
			seenTerms[key] = struct{}{}
			snap.Glossary = append(snap.Glossary, term)
		}
	}

	seenFlags := make(map[string]struct{})
	for _, flag := range raw.Flags {
		if _, dup := seenFlags[flag]; dup {
			continue
		}
		seenFlags[flag] = struct{}{}
		snap.Flags = append(snap.Flags, flag)
	}
	return snap
}

// resolveName maps a raw relationship endpoint onto the consolidated roster:
// exact match first, then first/last token of a multi-token canonical name.
func resolveName(roster []schema.Character, name string) string {
	for _, c := range roster {
		if c.CanonicalName == name {
			return name
		}
	}
	for _, c := range roster {
		tokens := c.NameTokens()
		if len(tokens) < 2 {
			continue
		}
		if tokens[0] == name || tokens[len(tokens)-1] == name {
			return c.CanonicalName
		}
	}
	return name
}

func rosterNames(previous *schema.ChapterSnapshot, inherited *schema.ContinuityPack) []string {
	if previous != nil {
		names := make([]string, 0, len(previous.Characters))
		for _, c := range previous.Characters {
			names = append(names, c.CanonicalName)
		}
		return names
	}
	if inherited != nil {
		names := make([]string, 0, len(inherited.Roster))
		for name := range inherited.Roster {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	return nil
}

func (w *Workflow) maxReextracts() int {
	if w.opts.MaxReextracts <= 0 {
		return 3
	}
	return w.opts.MaxReextracts
}

func documentIDFrom(ctx context.Context) string {
	id, _ := services.DocumentIDFromContext(ctx)
	return id
}
