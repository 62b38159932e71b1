// Package extraction produces raw candidate entities for a chapter, either
// through a semantic-extraction model call or a heuristic text scan. Both
// sources normalize to the same raw-candidate shape before consolidation.
package extraction
