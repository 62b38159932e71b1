// Package snapshots persists chapter snapshots in SQLite, one database per
// document under the storage root, and reads/writes the continuity pack
// export that seeds sequel volumes.
//
// Persisted snapshots are immutable: Persist is an explicit upsert keyed by
// chapter number, so a correction replaces the record only when re-persisted
// on purpose. Load never returns a partial snapshot; a corrupt record is a
// hard failure. The chapter sequence within one document must stay gapless,
// which Persist enforces.
package snapshots
