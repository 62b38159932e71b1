// Package schema defines the continuity data model: characters,
// relationships, glossary terms, per-chapter snapshots, and the end-of-volume
// continuity pack, plus the normalized raw-candidate records that upstream
// extraction collaborators are reduced to at the boundary.
//
// Snapshots are immutable once persisted; corrections produce a replacement
// snapshot for the same (document, chapter) identity. Validate enforces the
// per-snapshot invariants: canonical-name uniqueness and relationship
// pair-key uniqueness.
package schema
