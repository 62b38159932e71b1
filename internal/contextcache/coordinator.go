package contextcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tsumugi/internal/logging"
	"tsumugi/internal/schema"
)

// Payload is the context staged for the next unit: the character roster, a
// relationship summary, and the glossary terms that must never be translated.
type Payload struct {
	DocumentID    string   `json:"document_id"`
	Chapter       int      `json:"chapter"`
	Target        string   `json:"target"`
	Roster        []string `json:"roster"`
	Relationships []string `json:"relationships"`
	PreserveTerms []string `json:"preserve_terms"`
	Flags         []string `json:"flags,omitempty"`
}

// Backend is the external caching collaborator. The coordinator's only
// contract with it is stage, invalidate, and nothing else.
type Backend interface {
	Stage(ctx context.Context, payload Payload, ttl time.Duration) (ref string, err error)
	Invalidate(ctx context.Context, ref string) error
}

// Handle identifies one staged cache entry. Expiry is tracked locally and
// independently of whatever the backend does with the TTL.
type Handle struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Chapter    int       `json:"chapter"`
	Target     string    `json:"target"`
	BackendRef string    `json:"backend_ref"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Coordinator tracks at most one outstanding cache entry per document,
// persisting handles to a JSON file so restarts can still invalidate stale
// entries.
type Coordinator struct {
	backend Backend
	path    string
	target  string
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	handles map[string]Handle // keyed by document ID
}

// NewCoordinator creates a coordinator over the given backend. An empty path
// disables handle persistence; handles then live only for the process.
func NewCoordinator(backend Backend, path, target string, ttl time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Coordinator{
		backend: backend,
		path:    path,
		target:  target,
		ttl:     ttl,
		logger:  logging.NewComponentLogger(logger, "contextcache"),
		now:     time.Now,
		handles: make(map[string]Handle),
	}
	if path != "" {
		if err := c.load(); err != nil {
			c.logger.Warn("failed to load cache handle file",
				logging.String(logging.FieldEventType, "contextcache_load_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "handle tracking starts empty"),
				logging.String(logging.FieldImpact, "a previously staged entry may outlive its document"))
		}
	}
	return c
}

// StageForNextUnit stages the snapshot's context for the following unit,
// invalidating the document's previous entry first so at most one entry is
// outstanding per document. Failures are logged and reported as a nil
// handle, never as an error.
func (c *Coordinator) StageForNextUnit(ctx context.Context, snap *schema.ChapterSnapshot) *Handle {
	if c.backend == nil || snap == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.handles[snap.DocumentID]; ok {
		c.invalidateLocked(ctx, prev)
	}

	payload := BuildPayload(snap, c.target)
	ref, err := c.backend.Stage(ctx, payload, c.ttl)
	if err != nil {
		c.logger.Warn("cache staging failed, continuing without cache",
			logging.String(logging.FieldEventType, "contextcache_stage_failed"),
			logging.String(logging.FieldDocumentID, snap.DocumentID),
			logging.Int(logging.FieldChapter, snap.Chapter),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the caching collaborator"),
			logging.String(logging.FieldImpact, "next unit processes without cached context"))
		return nil
	}

	now := c.now().UTC()
	handle := Handle{
		ID:         uuid.NewString(),
		DocumentID: snap.DocumentID,
		Chapter:    snap.Chapter,
		Target:     c.target,
		BackendRef: ref,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.ttl),
	}
	c.handles[snap.DocumentID] = handle
	c.saveLocked()
	return &handle
}

// Invalidate revokes the document's outstanding entry, if any. Backend
// failures are logged; the local handle is dropped either way.
func (c *Coordinator) Invalidate(ctx context.Context, documentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	handle, ok := c.handles[documentID]
	if !ok {
		return
	}
	c.invalidateLocked(ctx, handle)
}

func (c *Coordinator) invalidateLocked(ctx context.Context, handle Handle) {
	if c.backend != nil {
		if err := c.backend.Invalidate(ctx, handle.BackendRef); err != nil {
			c.logger.Warn("cache invalidation failed",
				logging.String(logging.FieldEventType, "contextcache_invalidate_failed"),
				logging.String(logging.FieldDocumentID, handle.DocumentID),
				logging.String("handle_id", handle.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the entry will lapse on its own TTL"),
				logging.String(logging.FieldImpact, "a stale entry may linger at the collaborator"))
		}
	}
	delete(c.handles, handle.DocumentID)
	c.saveLocked()
}

// Current returns the document's outstanding handle, if one exists.
func (c *Coordinator) Current(documentID string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handle, ok := c.handles[documentID]
	return handle, ok
}

// IsValid reports whether a handle is still usable: it must be tracked,
// unexpired, and created for the given target when one is supplied. A target
// mismatch invalidates the handle even before expiry.
func (c *Coordinator) IsValid(handle *Handle, target string) bool {
	if handle == nil {
		return false
	}
	c.mu.Lock()
	tracked, ok := c.handles[handle.DocumentID]
	c.mu.Unlock()
	if !ok || tracked.ID != handle.ID {
		return false
	}
	if !c.now().UTC().Before(handle.ExpiresAt) {
		return false
	}
	if target != "" && handle.Target != target {
		return false
	}
	return true
}

// BuildPayload derives the next unit's cacheable context from a snapshot.
func BuildPayload(snap *schema.ChapterSnapshot, target string) Payload {
	payload := Payload{
		DocumentID: snap.DocumentID,
		Chapter:    snap.Chapter,
		Target:     target,
		Flags:      append([]string(nil), snap.Flags...),
	}
	for _, character := range snap.Characters {
		payload.Roster = append(payload.Roster, character.CanonicalName)
	}
	for _, rel := range snap.Relationships {
		summary := fmt.Sprintf("%s & %s: %s", rel.CharacterA, rel.CharacterB, rel.Type)
		if rel.StateLabel != "" {
			summary += " (" + rel.StateLabel + ")"
		}
		payload.Relationships = append(payload.Relationships, summary)
	}
	for _, term := range snap.Glossary {
		if term.Preserve {
			payload.PreserveTerms = append(payload.PreserveTerms, term.Source)
		}
	}
	sort.Strings(payload.Roster)
	sort.Strings(payload.PreserveTerms)
	return payload
}

func (c *Coordinator) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var handles map[string]Handle
	if err := json.Unmarshal(data, &handles); err != nil {
		return fmt.Errorf("parse handle file: %w", err)
	}
	c.handles = handles
	if c.handles == nil {
		c.handles = make(map[string]Handle)
	}
	return nil
}

// saveLocked persists handles with a temp-file rename. Persistence failures
// are logged only; handle tracking stays correct in memory.
func (c *Coordinator) saveLocked() {
	if c.path == "" {
		return
	}
	data, err := json.MarshalIndent(c.handles, "", "  ")
	if err == nil {
		if mkErr := os.MkdirAll(filepath.Dir(c.path), 0o755); mkErr != nil {
			err = mkErr
		}
	}
	if err == nil {
		tmp := c.path + ".tmp"
		if writeErr := os.WriteFile(tmp, data, 0o644); writeErr != nil {
			err = writeErr
		} else if renameErr := os.Rename(tmp, c.path); renameErr != nil {
			os.Remove(tmp)
			err = renameErr
		}
	}
	if err != nil {
		c.logger.Warn("failed to persist cache handle file",
			logging.String(logging.FieldEventType, "contextcache_save_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the handle file path"),
			logging.String(logging.FieldImpact, "handles will not survive a restart"))
	}
}
