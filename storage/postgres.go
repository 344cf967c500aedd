package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createCatalogs = `CREATE TABLE IF NOT EXISTS catalog_snapshots (
	run_id UUID NOT NULL,
	source TEXT NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL,
	courses INTEGER NOT NULL,
	snapshot JSONB NOT NULL,
	PRIMARY KEY (run_id, source)
)`

const createReports = `CREATE TABLE IF NOT EXISTS reconciliation_reports (
	run_id UUID PRIMARY KEY,
	compared_at TIMESTAMPTZ NOT NULL,
	total_diffs INTEGER NOT NULL,
	report JSONB NOT NULL
)`

const insertCatalog = `INSERT INTO catalog_snapshots (run_id, source, captured_at, courses, snapshot) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (run_id, source) DO UPDATE SET captured_at=EXCLUDED.captured_at, courses=EXCLUDED.courses, snapshot=EXCLUDED.snapshot`
const insertReport = `INSERT INTO reconciliation_reports (run_id, compared_at, total_diffs, report) VALUES ($1, $2, $3, $4) ON CONFLICT (run_id) DO UPDATE SET compared_at=EXCLUDED.compared_at, total_diffs=EXCLUDED.total_diffs, report=EXCLUDED.report`
const latestCatalog = `SELECT snapshot FROM catalog_snapshots WHERE source = $1 ORDER BY captured_at DESC LIMIT 1`

// PostgresStore writes snapshots of one run, keyed by RunID.
type PostgresStore struct {
	Pool  *pgxpool.Pool
	RunID uuid.UUID
}

// NewPostgresStore connects to databaseURL and assigns a fresh run id.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{Pool: pool, RunID: uuid.New()}, nil
}

// EnsureSchema creates the snapshot tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createCatalogs, createReports} {
		if _, err := s.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveCatalog(ctx context.Context, catalog *models.Catalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if _, err := s.Pool.Exec(ctx, insertCatalog,
		s.RunID, catalog.SourceIdentifier, catalog.CapturedAt, catalog.CourseCount(), data,
	); err != nil {
		return fmt.Errorf("insert catalog snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, report *models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if _, err := s.Pool.Exec(ctx, insertReport,
		s.RunID, report.ComparedAt, report.TotalDiffs(), data,
	); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// LatestCatalog returns the newest snapshot for source, or nil.
func (s *PostgresStore) LatestCatalog(ctx context.Context, source string) (*models.Catalog, error) {
	var data []byte
	if err := s.Pool.QueryRow(ctx, latestCatalog, source).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest catalog: %w", err)
	}

	var catalog models.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog snapshot: %w", err)
	}
	return &catalog, nil
}

func (s *PostgresStore) Close() {
	s.Pool.Close()
}
