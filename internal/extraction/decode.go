package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// decodeModelJSON decodes JSON from a model response, tolerating common
// formatting quirks such as code fences and prose around the payload.
func decodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, payloadSnippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, payloadSnippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	// Extract the outermost object when the model wrapped it in prose.
	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return ""
	}
	var end int
	if trimmed[start] == '{' {
		end = strings.LastIndex(trimmed, "}")
	} else {
		end = strings.LastIndex(trimmed, "]")
	}
	if end <= start {
		return ""
	}
	return trimmed[start : end+1]
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		// Drop the language tag line ("json", etc).
		trimmed = trimmed[newline+1:]
	}
	if fence := strings.LastIndex(trimmed, "```"); fence >= 0 {
		trimmed = trimmed[:fence]
	}
	return strings.TrimSpace(trimmed)
}

const snippetLimit = 160

func payloadSnippet(content string) string {
	condensed := strings.Join(strings.Fields(content), " ")
	if len(condensed) > snippetLimit {
		condensed = condensed[:snippetLimit] + "..."
	}
	return condensed
}
