package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceJSON = `{
  "sourceIdentifier": "reference",
  "capturedAt": "2026-01-15T09:00:00Z",
  "title": "BS Computer Science",
  "terms": [
    {"name": "Semester I", "courses": [
      {"serial": "1", "code": "CS101", "title": "Introduction to Computing", "credits": "3"},
      {"serial": null, "code": "MT101", "title": "Calculus I", "credits": "3", "prerequisite": "None"}
    ]}
  ]
}`

const referenceYAML = `sourceIdentifier: reference
capturedAt: 2026-01-15T09:00:00Z
title: BS Computer Science
terms:
  - name: Semester I
    courses:
      - serial: "1"
        code: CS101
        title: Introduction to Computing
        credits: "3"
      - code: MT101
        title: Calculus I
        credits: "3"
        prerequisite: None
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "json", file: "reference.json", body: referenceJSON},
		{name: "yaml", file: "reference.yaml", body: referenceYAML},
		{name: "yml", file: "reference.yml", body: referenceYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := LoadCatalog(writeFile(t, tt.file, tt.body))
			require.NoError(t, err)

			assert.Equal(t, "BS Computer Science", catalog.Title)
			assert.Equal(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), catalog.CapturedAt.UTC())
			require.Len(t, catalog.Terms, 1)
			require.Len(t, catalog.Terms[0].Courses, 2)

			first := catalog.Terms[0].Courses[0]
			assert.Equal(t, "CS101", models.Value(first.Code))
			assert.Equal(t, "3", models.Value(first.Credits))
			assert.Nil(t, first.Prerequisite)

			second := catalog.Terms[0].Courses[1]
			assert.Nil(t, second.Serial)
			assert.Equal(t, "None", models.Value(second.Prerequisite))
		})
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(writeFile(t, "reference.txt", referenceJSON))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadCatalog(writeFile(t, "broken.json", "{"))
	assert.Error(t, err)
}

func TestFileStoreRotatesCatalog(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	previous, err := store.LoadPrevious()
	require.NoError(t, err)
	assert.Nil(t, previous)

	first := &models.Catalog{Title: "first", Terms: []models.Term{{Name: "Semester 1"}}}
	second := &models.Catalog{Title: "second"}

	require.NoError(t, store.SaveCatalog(ctx, first))
	previous, err = store.LoadPrevious()
	require.NoError(t, err)
	assert.Nil(t, previous, "a single save leaves no previous capture")

	require.NoError(t, store.SaveCatalog(ctx, second))
	previous, err = store.LoadPrevious()
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, "first", previous.Title)

	latest, err := LoadCatalog(filepath.Join(store.Dir, "catalog.json"))
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Title)
}

func TestFileStoreSaveReport(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	report := &models.Report{
		ComparedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Terms: []models.TermReport{{
			Name:      "Semester 1",
			ValidKey:  "Semester I",
			DiffCount: 1,
			Diffs:     []models.DiffEntry{{Type: models.DiffMissing, Key: "CS101|3", Count: 1}},
		}},
	}
	require.NoError(t, store.SaveReport(context.Background(), report))

	data, err := os.ReadFile(filepath.Join(store.Dir, "report.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"validKey": "Semester I"`)
	assert.Contains(t, string(data), `"type": "missing"`)
}

type recordingWriter struct {
	catalogs int
	reports  int
	err      error
}

func (w *recordingWriter) SaveCatalog(context.Context, *models.Catalog) error {
	w.catalogs++
	return w.err
}

func (w *recordingWriter) SaveReport(context.Context, *models.Report) error {
	w.reports++
	return w.err
}

func TestMultiAttemptsEveryWriter(t *testing.T) {
	failure := errors.New("disk full")
	failing := &recordingWriter{err: failure}
	healthy := &recordingWriter{}
	multi := Multi{failing, healthy}

	err := multi.SaveCatalog(context.Background(), &models.Catalog{})
	assert.ErrorIs(t, err, failure)
	err = multi.SaveReport(context.Background(), &models.Report{})
	assert.ErrorIs(t, err, failure)

	assert.Equal(t, 1, healthy.catalogs)
	assert.Equal(t, 1, healthy.reports)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("UPDATER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("UPDATER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	source := "test://" + store.RunID.String()
	catalog := &models.Catalog{
		SourceIdentifier: source,
		CapturedAt:       time.Now().UTC().Truncate(time.Second),
		Terms: []models.Term{{
			Name:    "Semester 1",
			Courses: []models.Course{{Code: models.String("CS101"), Credits: models.String("3")}},
		}},
	}
	require.NoError(t, store.SaveCatalog(ctx, catalog))
	require.NoError(t, store.SaveReport(ctx, &models.Report{ComparedAt: time.Now()}))

	latest, err := store.LatestCatalog(ctx, source)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 1, latest.CourseCount())

	missing, err := store.LatestCatalog(ctx, "test://nothing-here")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
