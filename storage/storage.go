// Package storage loads reference catalogs and persists catalogs and
// reports, either as JSON files or as JSONB snapshots in Postgres.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/goccy/go-yaml"
)

// ErrUnsupportedFormat is returned for catalog files that are neither JSON
// nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// Writer persists the outputs of one run.
type Writer interface {
	SaveCatalog(ctx context.Context, catalog *models.Catalog) error
	SaveReport(ctx context.Context, report *models.Report) error
}

// LoadCatalog reads a catalog from a .json, .yaml or .yml file.
func LoadCatalog(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var catalog models.Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &catalog)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &catalog)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return &catalog, nil
}

// Multi fans a save out to every writer. All writers are attempted; their
// errors are joined.
type Multi []Writer

func (m Multi) SaveCatalog(ctx context.Context, catalog *models.Catalog) error {
	var errs []error
	for _, w := range m {
		if err := w.SaveCatalog(ctx, catalog); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) SaveReport(ctx context.Context, report *models.Report) error {
	var errs []error
	for _, w := range m {
		if err := w.SaveReport(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
