package textutil

// CosineSimilarity scores how alike two fingerprints are, in [0, 1].
// Nil or zero-norm fingerprints score 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	// Walk the smaller vector; only shared tokens contribute.
	small, large := a, b
	if len(b.tokens) < len(a.tokens) {
		small, large = b, a
	}
	var dot float64
	for token, count := range small.tokens {
		dot += count * large.tokens[token]
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
