package series

import (
	"context"
	"log/slog"

	"tsumugi/internal/logging"
	"tsumugi/internal/schema"
	"tsumugi/internal/snapshots"
	"tsumugi/internal/textutil"
)

// Candidate is a processed document that qualified as a possible predecessor.
type Candidate struct {
	DocumentID  string
	SeriesTitle string
	Sequence    int
}

// Resolver scans the library of processed documents for the predecessor
// volume of a new document. It only ever reads other documents' state.
type Resolver struct {
	root   string
	logger *slog.Logger
}

// NewResolver creates a resolver over the given library root.
func NewResolver(root string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		root:   root,
		logger: logging.NewComponentLogger(logger, "series"),
	}
}

// FindPredecessor locates the qualifying predecessor of (seriesTitle,
// sequence). It prefers the exact previous volume and falls back to the
// nearest lower sequence when the series has gaps. Returns (nil, nil) when
// no predecessor exists; that marks a series opener, never an error.
func (r *Resolver) FindPredecessor(ctx context.Context, seriesTitle string, sequence int) (*Candidate, error) {
	if seriesTitle == "" || sequence <= 1 {
		return nil, nil
	}

	docs, err := snapshots.ListDocuments(r.root)
	if err != nil {
		return nil, err
	}

	targetPrint := textutil.NewFingerprint(seriesTitle)
	var best *Candidate
	for _, doc := range docs {
		candidate, err := r.classify(doc)
		if err != nil {
			return nil, err
		}
		if candidate == nil || candidate.Sequence >= sequence {
			continue
		}
		if !r.sameSeries(seriesTitle, targetPrint, candidate.SeriesTitle) {
			continue
		}
		if best == nil || candidate.Sequence > best.Sequence {
			best = candidate
		}
	}

	if best == nil {
		r.logger.InfoContext(ctx, "no predecessor found, treating as series opener",
			logging.String("series_title", seriesTitle),
			logging.Int("sequence", sequence))
		return nil, nil
	}
	if best.Sequence != sequence-1 {
		logging.WarnWithContext(r.logger, "predecessor gap detected", "series_gap",
			logging.String("series_title", seriesTitle),
			logging.Int("sequence", sequence),
			logging.Int("predecessor_sequence", best.Sequence),
			logging.String("error_hint", "intermediate volumes were never processed"),
			logging.String("impact", "inherited state may miss recent developments"))
	}
	return best, nil
}

// classify determines a processed document's series membership, preferring
// the metadata its continuity pack recorded over re-parsing the document id.
func (r *Resolver) classify(documentID string) (*Candidate, error) {
	pack, err := snapshots.LoadPack(r.root, documentID)
	if err != nil {
		return nil, err
	}
	if pack != nil && pack.SeriesTitle != "" && pack.Volume > 0 {
		return &Candidate{DocumentID: documentID, SeriesTitle: pack.SeriesTitle, Sequence: pack.Volume}, nil
	}
	detection, ok := DetectSeries(documentID)
	if !ok {
		return nil, nil
	}
	return &Candidate{DocumentID: documentID, SeriesTitle: detection.SeriesTitle, Sequence: detection.Sequence}, nil
}

// Matches at or above this cosine similarity count as the same series even
// when the normalized titles differ in wording.
const titleSimilarityThreshold = 0.85

func (r *Resolver) sameSeries(target string, targetPrint *textutil.Fingerprint, candidate string) bool {
	if TitlesMatch(target, candidate) {
		return true
	}
	return textutil.CosineSimilarity(targetPrint, textutil.NewFingerprint(candidate)) >= titleSimilarityThreshold
}

// LoadInheritableState reads the predecessor's continuity pack, which seeds
// the new document's starting roster and glossary. Falls back to rebuilding
// a pack from the predecessor's last snapshot when the document was never
// fully completed.
func (r *Resolver) LoadInheritableState(ctx context.Context, predecessor *Candidate) (*schema.ContinuityPack, error) {
	if predecessor == nil {
		return nil, nil
	}
	pack, err := snapshots.LoadPack(r.root, predecessor.DocumentID)
	if err != nil {
		return nil, err
	}
	if pack != nil {
		return pack, nil
	}

	store, err := snapshots.Open(r.root, predecessor.DocumentID)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	persisted, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(persisted) == 0 {
		return nil, nil
	}
	logging.WarnWithContext(r.logger, "predecessor has no pack export, rebuilding from snapshots", "pack_missing",
		logging.String(logging.FieldDocumentID, predecessor.DocumentID),
		logging.String("error_hint", "the predecessor document never completed"),
		logging.String("impact", "the rebuilt pack reflects only persisted chapters"))
	return schema.BuildPack(persisted, predecessor.SeriesTitle, predecessor.Sequence), nil
}
