package extraction

import (
	"context"
	"fmt"
	"strings"

	"tsumugi/internal/schema"
	"tsumugi/internal/services"
)

const semanticSystemPrompt = `You are a literary continuity analyst for novel translation.
Given one chapter of a novel, extract every named character, the relationships
between them, specialized vocabulary that must stay consistent across chapters,
and narrative state flags (events that later chapters depend on).

Respond with JSON only, in this shape:
{
  "characters": [{"name": "", "source_name": "", "gender": "male|female|unknown",
                  "role": "protagonist|romantic_lead|friend|mentor|supporting",
                  "archetype": "", "age_grade": "", "confidence": 0.0}],
  "relationships": [{"name_a": "", "name_b": "",
                     "type": "romance|friendship|family|rivalry|mentor_student|acquaintance|peer|unknown",
                     "dynamics": "", "confidence": 0.0}],
  "terms": [{"source": "", "romaji": "", "translation": "", "preserve": false}],
  "flags": [""]
}

Use "Family Given" name order where the text establishes it. Report a name
exactly as written when you cannot determine the full form. Confidence is your
certainty in the extraction, between 0 and 1.`

// SemanticProvider extracts candidates through a chat-completion model.
type SemanticProvider struct {
	client *Client
}

// NewSemanticProvider wraps an extraction API client as a Provider.
func NewSemanticProvider(client *Client) *SemanticProvider {
	return &SemanticProvider{client: client}
}

// Name identifies the provider in logs and review output.
func (p *SemanticProvider) Name() string { return "semantic" }

// Extract runs one model call for the chapter and normalizes the response.
func (p *SemanticProvider) Extract(ctx context.Context, req Request) (*schema.RawExtraction, error) {
	if strings.TrimSpace(req.Text) == "" {
		return &schema.RawExtraction{}, nil
	}

	content, err := p.client.CompleteJSON(ctx, semanticSystemPrompt, buildUserPrompt(req))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extraction", "semantic extract",
			fmt.Sprintf("chapter %d", req.Chapter), err)
	}

	var wire struct {
		Characters []struct {
			Name       string  `json:"name"`
			SourceName string  `json:"source_name"`
			Gender     string  `json:"gender"`
			Role       string  `json:"role"`
			Archetype  string  `json:"archetype"`
			AgeGrade   string  `json:"age_grade"`
			Confidence float64 `json:"confidence"`
		} `json:"characters"`
		Relationships []schema.RawRelationship `json:"relationships"`
		Terms         []schema.RawTerm         `json:"terms"`
		Flags         []string                 `json:"flags"`
	}
	if err := decodeModelJSON(content, &wire); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extraction", "semantic extract", "parse model payload", err)
	}

	raw := &schema.RawExtraction{
		Relationships: wire.Relationships,
		Terms:         wire.Terms,
		Flags:         wire.Flags,
	}
	for _, c := range wire.Characters {
		raw.Characters = append(raw.Characters, schema.RawCandidate{
			Name:       c.Name,
			SourceName: c.SourceName,
			Gender:     schema.ParseGender(c.Gender),
			Role:       schema.ParseRole(c.Role),
			Archetype:  c.Archetype,
			AgeGrade:   c.AgeGrade,
			Confidence: c.Confidence,
		})
	}
	return normalizeExtraction(raw), nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s, chapter %d.\n", req.DocumentID, req.Chapter)
	if req.SourceLanguage != "" || req.TargetLanguage != "" {
		fmt.Fprintf(&b, "Translating %s to %s.\n", req.SourceLanguage, req.TargetLanguage)
	}
	if len(req.KnownNames) > 0 {
		fmt.Fprintf(&b, "Known characters (reuse these exact spellings): %s.\n",
			strings.Join(req.KnownNames, ", "))
	}
	b.WriteString("\nChapter text:\n")
	b.WriteString(req.Text)
	return b.String()
}
