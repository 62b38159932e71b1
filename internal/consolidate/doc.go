// Package consolidate merges fragmentary name mentions into canonical
// character identities ahead of delta computation.
//
// Candidates with multi-token names are treated as already canonical;
// single-token partials are matched against the first or last token of each
// known full name, merged higher-confidence-wins, and rewarded with a fixed
// confidence bonus. Partials with no known match are expanded from the
// chapter text via capitalized-neighbor scanning; partials that match nothing
// are retained as low-confidence single-token entities rather than dropped.
//
// A partial whose token matches more than one full name is resolved to the
// first full entity in input order and reported as an ambiguity for review.
package consolidate
