package consolidate

import (
	"context"
	"log/slog"
	"strings"

	"tsumugi/internal/logging"
	"tsumugi/internal/schema"
)

// Options tunes consolidation. CommonWords is the injected read-only filter
// of capitalized words that must never be promoted into a canonical name.
type Options struct {
	MergeBonus    float64
	MinConfidence float64
	CommonWords   []string
}

// AmbiguousMatch records a partial that could belong to more than one known
// full entity. Resolution picks the first full entity in input order; the
// remaining candidates are surfaced for review.
type AmbiguousMatch struct {
	Partial         string
	ChosenCanonical string
	OtherCandidates []string
}

// Result is the outcome of one consolidation pass.
type Result struct {
	Characters []schema.Character
	Ambiguous  []AmbiguousMatch
	// Expanded lists partials promoted to full names via text adjacency,
	// formatted "partial -> full".
	Expanded []string
	// Unresolved lists partials retained as single-token entities.
	Unresolved []string
}

// Consolidator merges raw candidate characters into canonical identities.
type Consolidator struct {
	opts        Options
	commonWords map[string]struct{}
	logger      *slog.Logger
}

// New constructs a consolidator with the provided options.
func New(opts Options, logger *slog.Logger) *Consolidator {
	common := make(map[string]struct{}, len(opts.CommonWords))
	for _, word := range opts.CommonWords {
		word = strings.TrimSpace(word)
		if word != "" {
			common[word] = struct{}{}
		}
	}
	return &Consolidator{
		opts:        opts,
		commonWords: common,
		logger:      logging.NewComponentLogger(logger, "consolidate"),
	}
}

// Consolidate merges the raw candidates for one chapter against its full
// text. Zero or one usable candidates short-circuits to a plain conversion;
// there is nothing to consolidate.
func (c *Consolidator) Consolidate(ctx context.Context, candidates []schema.RawCandidate, text string) Result {
	log := logging.WithContext(ctx, c.logger)

	usable := make([]schema.RawCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Normalize() {
			usable = append(usable, cand)
		}
	}

	if len(usable) <= 1 {
		return c.applyConfidenceFloor(log, Result{Characters: toCharacters(usable)})
	}

	var fulls []schema.Character
	var partials []schema.RawCandidate
	for _, cand := range usable {
		if len(strings.Fields(cand.Name)) >= 2 {
			fulls = append(fulls, toCharacter(cand))
		} else {
			partials = append(partials, cand)
		}
	}

	result := Result{}

	for _, partial := range partials {
		matches := matchingFulls(fulls, partial.Name)
		if len(matches) > 0 {
			chosen := matches[0]
			if len(matches) > 1 {
				others := make([]string, 0, len(matches)-1)
				for _, idx := range matches[1:] {
					others = append(others, fulls[idx].CanonicalName)
				}
				result.Ambiguous = append(result.Ambiguous, AmbiguousMatch{
					Partial:         partial.Name,
					ChosenCanonical: fulls[chosen].CanonicalName,
					OtherCandidates: others,
				})
				logging.WarnWithContext(log, "ambiguous partial name", "consolidation_ambiguous",
					logging.String("partial", partial.Name),
					logging.String("chosen", fulls[chosen].CanonicalName),
					logging.Int("other_candidates", len(others)),
					logging.String(logging.FieldErrorHint, "verify the merge during review"),
					logging.String(logging.FieldImpact, "partial merged into first matching character"))
			}
			mergePartial(&fulls[chosen], partial, c.opts.MergeBonus)
			log.Debug("merged partial into full entity",
				logging.String("partial", partial.Name),
				logging.String("canonical", fulls[chosen].CanonicalName))
			continue
		}

		if expanded, ok := c.expandFromText(text, partial.Name); ok {
			promoted := toCharacter(partial)
			promoted.CanonicalName = expanded
			fulls = append(fulls, promoted)
			result.Expanded = append(result.Expanded, partial.Name+" -> "+expanded)
			log.Debug("expanded partial from chapter text",
				logging.String("partial", partial.Name),
				logging.String("canonical", expanded))
			continue
		}

		// Degraded-confidence result, not a failure: the partial stays.
		fulls = append(fulls, toCharacter(partial))
		result.Unresolved = append(result.Unresolved, partial.Name)
		log.Debug("retained unresolved partial", logging.String("partial", partial.Name))
	}

	result.Characters = dedupeByName(log, fulls)
	return c.applyConfidenceFloor(log, result)
}

// applyConfidenceFloor drops characters whose post-merge confidence sits
// below the configured floor, surfacing each in Unresolved so review still
// sees the name. A floor of zero keeps everything.
func (c *Consolidator) applyConfidenceFloor(log *slog.Logger, result Result) Result {
	if c.opts.MinConfidence <= 0 {
		return result
	}
	listed := make(map[string]struct{}, len(result.Unresolved))
	for _, name := range result.Unresolved {
		listed[name] = struct{}{}
	}
	kept := make([]schema.Character, 0, len(result.Characters))
	for _, character := range result.Characters {
		if character.Confidence >= c.opts.MinConfidence {
			kept = append(kept, character)
			continue
		}
		if _, dup := listed[character.CanonicalName]; !dup {
			listed[character.CanonicalName] = struct{}{}
			result.Unresolved = append(result.Unresolved, character.CanonicalName)
		}
		logging.WarnWithContext(log, "dropped low-confidence character", "consolidation_floor",
			logging.String("canonical", character.CanonicalName),
			logging.Float64("confidence", character.Confidence),
			logging.Float64("floor", c.opts.MinConfidence),
			logging.String(logging.FieldErrorHint, "raise the candidate's confidence or lower consolidation.min_confidence"),
			logging.String(logging.FieldImpact, "character excluded from the snapshot"))
	}
	result.Characters = kept
	return result
}

// matchingFulls returns the indexes of every full entity whose first or last
// name token equals the partial, in input order.
func matchingFulls(fulls []schema.Character, partial string) []int {
	var matches []int
	for i, full := range fulls {
		tokens := full.NameTokens()
		if len(tokens) < 2 {
			continue
		}
		if tokens[0] == partial || tokens[len(tokens)-1] == partial {
			matches = append(matches, i)
		}
	}
	return matches
}

// mergePartial folds a partial mention's attributes into the chosen full
// entity. Each field keeps whichever side reported it with higher confidence;
// the full entity's confidence grows by the merge bonus, capped at 1.0.
func mergePartial(full *schema.Character, partial schema.RawCandidate, bonus float64) {
	partialWins := partial.Confidence > full.Confidence

	if partial.Gender != schema.GenderUnknown && (full.Gender == schema.GenderUnknown || partialWins) {
		full.Gender = partial.Gender
	}
	if partial.Role != schema.RoleSupporting && (full.Role == schema.RoleSupporting || partialWins) {
		full.Role = partial.Role
	}
	if partial.Archetype != "" && (full.Archetype == "" || partialWins) {
		full.Archetype = partial.Archetype
	}
	if partial.AgeGrade != "" && (full.AgeGrade == "" || partialWins) {
		full.AgeGrade = partial.AgeGrade
	}
	if partial.SourceName != "" && full.SourceName == "" {
		full.SourceName = partial.SourceName
	}

	full.Confidence = schema.ClampConfidence(full.Confidence + bonus)
}

func dedupeByName(log *slog.Logger, characters []schema.Character) []schema.Character {
	seen := make(map[string]struct{}, len(characters))
	out := make([]schema.Character, 0, len(characters))
	for _, c := range characters {
		if _, dup := seen[c.CanonicalName]; dup {
			log.Debug("dropped duplicate canonical name",
				logging.String("canonical", c.CanonicalName))
			continue
		}
		seen[c.CanonicalName] = struct{}{}
		out = append(out, c)
	}
	return out
}

func toCharacter(cand schema.RawCandidate) schema.Character {
	return schema.Character{
		CanonicalName: cand.Name,
		SourceName:    cand.SourceName,
		Gender:        cand.Gender,
		Role:          cand.Role,
		Archetype:     cand.Archetype,
		AgeGrade:      cand.AgeGrade,
		Confidence:    schema.ClampConfidence(cand.Confidence),
	}
}

func toCharacters(cands []schema.RawCandidate) []schema.Character {
	out := make([]schema.Character, 0, len(cands))
	for _, cand := range cands {
		out = append(out, toCharacter(cand))
	}
	return out
}
