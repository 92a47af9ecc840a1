// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultRunTable = "ingest_runs"

// RunStoreConfig controls the Postgres connection pool used for run history.
type RunStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RunStore implements ingest.RunStore on a single Postgres table.
type RunStore struct {
	pool  pool
	table string
}

// NewRunStore creates a Postgres-backed RunStore using the provided config.
func NewRunStore(ctx context.Context, cfg RunStoreConfig) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history.dsn is required")
	}
	table, err := resolveTable(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RunStore{pool: p, table: table}, nil
}

// NewRunStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRunStoreWithPool(p pool, table string) (*RunStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := resolveTable(table)
	if err != nil {
		return nil, err
	}
	return &RunStore{pool: p, table: table}, nil
}

func resolveTable(table string) (string, error) {
	if table == "" {
		table = defaultRunTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the history table when it does not exist.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	cursor_url TEXT NOT NULL,
	next_cursor_url TEXT NOT NULL,
	items_fetched INTEGER NOT NULL,
	rows_inserted INTEGER NOT NULL,
	failed_stage TEXT NOT NULL,
	error_message TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create run table: %w", err)
	}
	return nil
}

// RecordRun upserts a run row.
func (s *RunStore) RecordRun(ctx context.Context, run ingest.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	status,
	cursor_url,
	next_cursor_url,
	items_fetched,
	rows_inserted,
	failed_stage,
	error_message,
	started_at,
	finished_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	next_cursor_url = EXCLUDED.next_cursor_url,
	items_fetched = EXCLUDED.items_fetched,
	rows_inserted = EXCLUDED.rows_inserted,
	failed_stage = EXCLUDED.failed_stage,
	error_message = EXCLUDED.error_message,
	finished_at = EXCLUDED.finished_at`, s.table)

	args := []any{
		run.ID,
		string(run.Status),
		run.Cursor,
		run.NextCursor,
		run.ItemsFetched,
		run.RowsInserted,
		run.FailedStage,
		run.ErrorMessage,
		run.StartedAt,
		run.FinishedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

const runColumns = `id, status, cursor_url, next_cursor_url, items_fetched, rows_inserted, failed_stage, error_message, started_at, finished_at`

// GetRun retrieves a single run by its ID.
func (s *RunStore) GetRun(ctx context.Context, id string) (ingest.RunRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, runColumns, s.table)
	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ingest.RunRecord{}, ingest.ErrRunNotFound
		}
		return ingest.RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs newest first, with optional status filtering.
func (s *RunStore) ListRuns(
	ctx context.Context,
	status *ingest.RunStatus,
	limit,
	offset int,
) ([]ingest.RunRecord, error) {
	query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE ($1::text IS NULL OR status = $1)
ORDER BY started_at DESC
LIMIT $2 OFFSET $3`, runColumns, s.table)

	var statusArg *string
	if status != nil {
		v := string(*status)
		statusArg = &v
	}
	rows, err := s.pool.Query(ctx, query, statusArg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []ingest.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (ingest.RunRecord, error) {
	var (
		run    ingest.RunRecord
		status string
	)
	err := row.Scan(
		&run.ID,
		&status,
		&run.Cursor,
		&run.NextCursor,
		&run.ItemsFetched,
		&run.RowsInserted,
		&run.FailedStage,
		&run.ErrorMessage,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return ingest.RunRecord{}, err
	}
	run.Status = ingest.RunStatus(status)
	return run, nil
}
