// Package textutil provides text processing utilities for tokenization,
// similarity, and identifier sanitization.
//
// The primary use cases are:
//   - Creating token-based fingerprints from titles for comparison
//   - Computing cosine similarity between fingerprints
//   - Sanitizing document titles into stable storage identifiers
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// The tokenization process lowercases text, splits on non-alphanumeric
// characters, and filters tokens shorter than 3 characters.
package textutil
