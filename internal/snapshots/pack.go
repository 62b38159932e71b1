package snapshots

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tsumugi/internal/schema"
	"tsumugi/internal/services"
)

const packFileName = "continuity.json"

// PackPath returns the continuity pack location for a document.
func PackPath(root, documentID string) string {
	return filepath.Join(root, documentID, packFileName)
}

// SavePack writes a document's continuity pack atomically, superseding any
// prior export for the same document.
func SavePack(root string, pack *schema.ContinuityPack) error {
	if pack == nil || pack.DocumentID == "" {
		return services.Wrap(services.ErrValidation, "snapshots", "save pack", "pack missing document id", nil)
	}

	data, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "snapshots", "save pack", "marshal pack", err)
	}

	path := PackPath(root, pack.DocumentID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "snapshots", "save pack", "create document directory", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "snapshots", "save pack", "write temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrPersistence, "snapshots", "save pack", "rename temp file", err)
	}
	return nil
}

// LoadPack reads a document's continuity pack. Returns (nil, nil) when the
// document has no pack export yet.
func LoadPack(root, documentID string) (*schema.ContinuityPack, error) {
	data, err := os.ReadFile(PackPath(root, documentID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "load pack", documentID, err)
	}

	var pack schema.ContinuityPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "load pack", fmt.Sprintf("parse %s", documentID), err)
	}
	return &pack, nil
}

// ListDocuments returns the document identifiers present under the storage
// root, in directory order.
func ListDocuments(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrPersistence, "snapshots", "list documents", root, err)
	}
	var docs []string
	for _, entry := range entries {
		if entry.IsDir() {
			docs = append(docs, entry.Name())
		}
	}
	return docs, nil
}
