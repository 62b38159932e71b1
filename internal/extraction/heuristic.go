package extraction

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"tsumugi/internal/schema"
)

// nameTokenPattern matches one capitalized name-like token.
var nameTokenPattern = regexp.MustCompile(`\p{Lu}[\p{L}'-]*`)

// namePairPattern matches two adjacent capitalized tokens, the usual shape
// of a full "Family Given" name in romanized text.
var namePairPattern = regexp.MustCompile(`(\p{Lu}[\p{L}'-]*)[ \t]+(\p{Lu}[\p{L}'-]*)`)

const (
	heuristicBaseConfidence = 0.3
	heuristicStepConfidence = 0.1
	heuristicMaxConfidence  = 0.8
	heuristicMinMentions    = 2
)

// HeuristicProvider is the no-model fallback: a frequency scan over
// capitalized tokens. It finds recurring names but reports them with low
// confidence, leaving the rest to consolidation and review.
type HeuristicProvider struct {
	commonWords map[string]struct{}
}

// NewHeuristicProvider creates the fallback provider. commonWords are
// capitalized sentence openers and honorifics to skip ("The", "She", ...).
func NewHeuristicProvider(commonWords []string) *HeuristicProvider {
	words := make(map[string]struct{}, len(commonWords))
	for _, word := range commonWords {
		words[strings.ToLower(strings.TrimSpace(word))] = struct{}{}
	}
	return &HeuristicProvider{commonWords: words}
}

// Name identifies the provider in logs and review output.
func (p *HeuristicProvider) Name() string { return "heuristic" }

// Extract scans the chapter text for recurring capitalized names. It never
// reports relationships, terms, or flags; those need semantics.
func (p *HeuristicProvider) Extract(_ context.Context, req Request) (*schema.RawExtraction, error) {
	raw := &schema.RawExtraction{}
	if strings.TrimSpace(req.Text) == "" {
		return raw, nil
	}

	known := make(map[string]struct{}, len(req.KnownNames))
	for _, name := range req.KnownNames {
		known[name] = struct{}{}
	}

	pairCounts := make(map[string]int)
	for _, match := range namePairPattern.FindAllStringSubmatch(req.Text, -1) {
		if p.skip(match[1]) || p.skip(match[2]) {
			continue
		}
		pairCounts[match[1]+" "+match[2]]++
	}

	// Tokens already accounted for inside a pair don't also count alone.
	pairTokens := make(map[string]struct{})
	for pair := range pairCounts {
		for _, token := range strings.Fields(pair) {
			pairTokens[token] = struct{}{}
		}
	}

	singleCounts := make(map[string]int)
	for _, token := range nameTokenPattern.FindAllString(req.Text, -1) {
		if p.skip(token) {
			continue
		}
		if _, inPair := pairTokens[token]; inPair {
			continue
		}
		singleCounts[token]++
	}

	for name, count := range pairCounts {
		raw.Characters = append(raw.Characters, schema.RawCandidate{
			Name:       name,
			Confidence: p.confidence(name, count, known),
		})
	}
	for name, count := range singleCounts {
		if count < heuristicMinMentions {
			if _, isKnown := known[name]; !isKnown {
				continue
			}
		}
		raw.Characters = append(raw.Characters, schema.RawCandidate{
			Name:       name,
			Confidence: p.confidence(name, count, known),
		})
	}

	sort.Slice(raw.Characters, func(i, j int) bool {
		if raw.Characters[i].Confidence != raw.Characters[j].Confidence {
			return raw.Characters[i].Confidence > raw.Characters[j].Confidence
		}
		return raw.Characters[i].Name < raw.Characters[j].Name
	})
	return normalizeExtraction(raw), nil
}

func (p *HeuristicProvider) skip(token string) bool {
	if len([]rune(token)) < 2 {
		return true
	}
	_, common := p.commonWords[strings.ToLower(token)]
	return common
}

func (p *HeuristicProvider) confidence(name string, mentions int, known map[string]struct{}) float64 {
	confidence := heuristicBaseConfidence + heuristicStepConfidence*float64(mentions-1)
	if _, isKnown := known[name]; isKnown {
		confidence += 2 * heuristicStepConfidence
	}
	if confidence > heuristicMaxConfidence {
		confidence = heuristicMaxConfidence
	}
	return confidence
}
