package series

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Detection is a parsed series membership: the base series title with the
// volume marker stripped, and the sequence number the marker carried.
type Detection struct {
	SeriesTitle string
	Sequence    int
}

// Volume marker patterns, tried in priority order. The first match wins, so
// an explicit "Vol." marker always beats a trailing bare number.
var volumePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.*?)[\s,:._-]+(?:vol\.?|volume)[\s._]*([0-9]+)\b.*$`),
	regexp.MustCompile(`(?i)^(.*?)[\s,:._-]+v[\s._]*([0-9]+)\s*$`),
	regexp.MustCompile(`^(.*?)[\s,:._-]+([0-9]+)\s*$`),
	regexp.MustCompile(`^(.*?)[\s,:._-]*第\s*([0-9]+)\s*巻.*$`),
	regexp.MustCompile(`^(.*?)[\s,:._-]+([0-9]+)\s*巻.*$`),
}

// DetectSeries parses a document title or identifier into a series title and
// sequence number. Returns false when no volume marker is recognized, which
// marks the document as a standalone work or series opener.
func DetectSeries(title string) (Detection, bool) {
	// Fold fullwidth digits so source-language markers like 第３巻 parse
	// with the same patterns as ASCII ones.
	folded := width.Fold.String(strings.TrimSpace(title))
	if folded == "" {
		return Detection{}, false
	}
	for _, pattern := range volumePatterns {
		match := pattern.FindStringSubmatch(folded)
		if match == nil {
			continue
		}
		base := strings.TrimSpace(match[1])
		sequence, err := strconv.Atoi(match[2])
		if err != nil || sequence < 1 || base == "" {
			continue
		}
		return Detection{SeriesTitle: base, Sequence: sequence}, true
	}
	return Detection{}, false
}

// Generic suffix tokens stripped before containment comparison. "Bookworm
// Light Novel Vol. 2" and "Bookworm" belong to the same series.
var genericSuffixTokens = map[string]struct{}{
	"series":  {},
	"light":   {},
	"novel":   {},
	"novels":  {},
	"ln":      {},
	"the":     {},
	"edition": {},
}

// NormalizeTitle lowercases, folds width variants, and collapses separator
// runs so titles differing only in case or punctuation compare equal.
func NormalizeTitle(title string) string {
	folded := width.Fold.String(title)
	lowered := strings.ToLower(folded)
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_' || r == '.' || r == ',' || r == ':'
	})
	return strings.Join(fields, " ")
}

func stripGenericSuffixes(normalized string) string {
	fields := strings.Fields(normalized)
	for len(fields) > 0 {
		last := fields[len(fields)-1]
		if _, generic := genericSuffixTokens[last]; !generic {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// TitlesMatch reports whether two series titles refer to the same series:
// normalized equality, or containment after stripping generic suffix tokens.
func TitlesMatch(a, b string) bool {
	na := NormalizeTitle(a)
	nb := NormalizeTitle(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	sa := stripGenericSuffixes(na)
	sb := stripGenericSuffixes(nb)
	if sa == "" || sb == "" {
		return false
	}
	return sa == sb || strings.Contains(sa, sb) || strings.Contains(sb, sa)
}
