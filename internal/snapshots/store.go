package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tsumugi/internal/schema"
	"tsumugi/internal/services"
)

// Store manages snapshot persistence for one document, backed by SQLite.
type Store struct {
	db         *sql.DB
	path       string
	documentID string
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    chapter            INTEGER PRIMARY KEY,
    unit_id            TEXT NOT NULL,
    generated_at       TEXT NOT NULL,
    reviewed_by_user   INTEGER NOT NULL DEFAULT 0,
    user_corrections   INTEGER NOT NULL DEFAULT 0,
    characters_json    TEXT NOT NULL,
    relationships_json TEXT NOT NULL,
    glossary_json      TEXT NOT NULL,
    flags_json         TEXT NOT NULL,
    persisted_at       TEXT NOT NULL
)`

// Open initializes or connects to a document's snapshot database under the
// given storage root.
func Open(root, documentID string) (*Store, error) {
	if documentID == "" {
		return nil, services.Wrap(services.ErrValidation, "snapshots", "open", "document id is empty", nil)
	}
	docDir := filepath.Join(root, documentID)
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "open", "ensure document directory", err)
	}

	dbPath := filepath.Join(docDir, "snapshots.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrPersistence, "snapshots", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	if _, err := db.Exec(snapshotSchema); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "open", "apply schema", err)
	}

	return &Store{db: db, path: dbPath, documentID: documentID}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DocumentID returns the document this store belongs to.
func (s *Store) DocumentID() string {
	return s.documentID
}

// Persist writes a snapshot record, replacing any existing record for the
// same chapter. The snapshot must validate and must not open a gap in the
// document's chapter sequence.
func (s *Store) Persist(ctx context.Context, snap *schema.ChapterSnapshot) error {
	if snap == nil {
		return services.Wrap(services.ErrValidation, "snapshots", "persist", "snapshot is nil", nil)
	}
	if snap.DocumentID != s.documentID {
		return services.Wrap(services.ErrValidation, "snapshots", "persist",
			fmt.Sprintf("snapshot document %q does not match store document %q", snap.DocumentID, s.documentID), nil)
	}
	if err := snap.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "snapshots", "persist", "invalid snapshot", err)
	}

	maxChapter, count, err := s.sequenceBounds(ctx)
	if err != nil {
		return err
	}
	next := 1
	if count > 0 {
		next = maxChapter + 1
	}
	if snap.Chapter > next {
		return services.Wrap(services.ErrValidation, "snapshots", "persist",
			fmt.Sprintf("chapter %d would leave a gap after chapter %d", snap.Chapter, maxChapter), nil)
	}

	characters, err := json.Marshal(snap.Characters)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "snapshots", "persist", "marshal characters", err)
	}
	relationships, err := json.Marshal(snap.Relationships)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "snapshots", "persist", "marshal relationships", err)
	}
	glossary, err := json.Marshal(snap.Glossary)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "snapshots", "persist", "marshal glossary", err)
	}
	flags, err := json.Marshal(snap.Flags)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "snapshots", "persist", "marshal flags", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO snapshots (
            chapter, unit_id, generated_at, reviewed_by_user, user_corrections,
            characters_json, relationships_json, glossary_json, flags_json, persisted_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(chapter) DO UPDATE SET
            unit_id = excluded.unit_id,
            generated_at = excluded.generated_at,
            reviewed_by_user = excluded.reviewed_by_user,
            user_corrections = excluded.user_corrections,
            characters_json = excluded.characters_json,
            relationships_json = excluded.relationships_json,
            glossary_json = excluded.glossary_json,
            flags_json = excluded.flags_json,
            persisted_at = excluded.persisted_at`,
		snap.Chapter,
		snap.UnitID(),
		snap.GeneratedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(snap.ReviewedByUser),
		snap.UserCorrections,
		string(characters),
		string(relationships),
		string(glossary),
		string(flags),
		now,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "snapshots", "persist", "insert snapshot", err)
	}
	return nil
}

// Load fetches the snapshot for a chapter. Returns (nil, nil) when no record
// exists; a corrupt record is an error, never a partial snapshot.
func (s *Store) Load(ctx context.Context, chapter int) (*schema.ChapterSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE chapter = ?`, chapter)
	snap, err := s.scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "load", fmt.Sprintf("chapter %d", chapter), err)
	}
	return snap, nil
}

// Latest returns the highest-numbered snapshot, or (nil, nil) for an empty
// document.
func (s *Store) Latest(ctx context.Context) (*schema.ChapterSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots ORDER BY chapter DESC LIMIT 1`)
	snap, err := s.scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "latest", "", err)
	}
	return snap, nil
}

// List returns all snapshots ordered by chapter.
func (s *Store) List(ctx context.Context) ([]*schema.ChapterSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots ORDER BY chapter`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "list", "", err)
	}
	defer rows.Close()

	var snaps []*schema.ChapterSnapshot
	for rows.Next() {
		snap, err := s.scanSnapshot(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "snapshots", "list", "scan", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "list", "iterate", err)
	}
	return snaps, nil
}

// Count returns the number of persisted snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM snapshots`).Scan(&count); err != nil {
		return 0, services.Wrap(services.ErrPersistence, "snapshots", "count", "", err)
	}
	return count, nil
}

func (s *Store) sequenceBounds(ctx context.Context) (maxChapter, count int, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(chapter), 0), COUNT(1) FROM snapshots`)
	if scanErr := row.Scan(&maxChapter, &count); scanErr != nil {
		return 0, 0, services.Wrap(services.ErrPersistence, "snapshots", "persist", "query sequence bounds", scanErr)
	}
	return maxChapter, count, nil
}

const snapshotColumns = "chapter, generated_at, reviewed_by_user, user_corrections, characters_json, relationships_json, glossary_json, flags_json"

func (s *Store) scanSnapshot(scanner interface{ Scan(dest ...any) error }) (*schema.ChapterSnapshot, error) {
	var (
		chapter       int
		generatedRaw  string
		reviewed      int
		corrections   int
		characters    string
		relationships string
		glossary      string
		flags         string
	)
	if err := scanner.Scan(&chapter, &generatedRaw, &reviewed, &corrections, &characters, &relationships, &glossary, &flags); err != nil {
		return nil, err
	}

	snap := &schema.ChapterSnapshot{
		DocumentID:      s.documentID,
		Chapter:         chapter,
		ReviewedByUser:  reviewed != 0,
		UserCorrections: corrections,
	}
	generated, err := time.Parse(time.RFC3339Nano, generatedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse generated_at: %w", err)
	}
	snap.GeneratedAt = generated
	if err := json.Unmarshal([]byte(characters), &snap.Characters); err != nil {
		return nil, fmt.Errorf("unmarshal characters: %w", err)
	}
	if err := json.Unmarshal([]byte(relationships), &snap.Relationships); err != nil {
		return nil, fmt.Errorf("unmarshal relationships: %w", err)
	}
	if err := json.Unmarshal([]byte(glossary), &snap.Glossary); err != nil {
		return nil, fmt.Errorf("unmarshal glossary: %w", err)
	}
	if err := json.Unmarshal([]byte(flags), &snap.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	return snap, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
