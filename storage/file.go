package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ArqamWaheed/submissionUpdater/models"
)

const (
	catalogFile  = "catalog.json"
	previousFile = "catalog.previous.json"
	reportFile   = "report.json"
)

// FileStore keeps the latest catalog and report as indented JSON in Dir.
// Saving a catalog moves the existing one aside so one previous capture is
// always available.
type FileStore struct {
	Dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory %q: %w", dir, err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) SaveCatalog(_ context.Context, catalog *models.Catalog) error {
	current := filepath.Join(s.Dir, catalogFile)
	if _, err := os.Stat(current); err == nil {
		if err := os.Rename(current, filepath.Join(s.Dir, previousFile)); err != nil {
			return fmt.Errorf("rotate catalog: %w", err)
		}
	}
	return writeJSON(current, catalog)
}

func (s *FileStore) SaveReport(_ context.Context, report *models.Report) error {
	return writeJSON(filepath.Join(s.Dir, reportFile), report)
}

// LoadPrevious returns the catalog saved before the latest one, or nil when
// there is none.
func (s *FileStore) LoadPrevious() (*models.Catalog, error) {
	catalog, err := LoadCatalog(filepath.Join(s.Dir, previousFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return catalog, err
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
