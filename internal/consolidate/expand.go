package consolidate

import (
	"regexp"
	"strings"
)

// expandFromText tries to promote an unmatched partial to a two-token full
// name by scanning the chapter text for a capitalized neighbor, first as
// "<Neighbor> <partial>", then as "<partial> <Neighbor>". The neighbor must
// not be a configured common word.
func (c *Consolidator) expandFromText(text, partial string) (string, bool) {
	if text == "" || partial == "" {
		return "", false
	}
	quoted := regexp.QuoteMeta(partial)

	before := regexp.MustCompile(`(\p{Lu}[\p{L}'-]*)[ \t]+` + quoted + `\b`)
	for _, match := range before.FindAllStringSubmatch(text, -1) {
		if neighbor := match[1]; c.acceptNeighbor(neighbor, partial) {
			return neighbor + " " + partial, true
		}
	}

	after := regexp.MustCompile(`\b` + quoted + `[ \t]+(\p{Lu}[\p{L}'-]*)`)
	for _, match := range after.FindAllStringSubmatch(text, -1) {
		if neighbor := match[1]; c.acceptNeighbor(neighbor, partial) {
			return partial + " " + neighbor, true
		}
	}

	return "", false
}

func (c *Consolidator) acceptNeighbor(neighbor, partial string) bool {
	if len(neighbor) < 2 || strings.EqualFold(neighbor, partial) {
		return false
	}
	_, common := c.commonWords[neighbor]
	return !common
}
