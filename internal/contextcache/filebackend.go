package contextcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileBackend is a Backend that writes staged payloads as JSON files. It
// stands in for a remote caching collaborator in local setups; a consumer
// polls the staging directory for the newest payload per document.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a backend staging into the given directory.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

type stagedFile struct {
	Payload  Payload   `json:"payload"`
	StagedAt time.Time `json:"staged_at"`
	TTL      string    `json:"ttl"`
}

// Stage writes the payload to a uniquely named file and returns its path.
func (b *FileBackend) Stage(_ context.Context, payload Payload, ttl time.Duration) (string, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	data, err := json.MarshalIndent(stagedFile{
		Payload:  payload,
		StagedAt: time.Now().UTC(),
		TTL:      ttl.String(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	path := filepath.Join(b.dir, uuid.NewString()+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish payload: %w", err)
	}
	return path, nil
}

// Invalidate removes a staged payload file. A missing file is not an error;
// the entry may have lapsed already.
func (b *FileBackend) Invalidate(_ context.Context, ref string) error {
	if err := os.Remove(ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged payload: %w", err)
	}
	return nil
}
