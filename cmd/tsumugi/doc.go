// Command tsumugi processes novel chapters into continuity snapshots and
// packs: extraction, consolidation, delta review, and snapshot persistence
// per chapter, with series-aware seeding for sequel volumes.
package main
