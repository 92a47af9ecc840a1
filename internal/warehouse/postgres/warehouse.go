// Package postgres implements the warehouse on Postgres, mapping datasets to schemas.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// Warehouse stores rows in Postgres tables.
type Warehouse struct {
	pool pool
}

// New connects a pgx pool using cfg.
func New(ctx context.Context, cfg Config) (*Warehouse, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("warehouse.dsn is required")
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
	return &Warehouse{pool: p}, nil
}

// NewWithPool constructs a Warehouse from an existing pool (primarily for testing).
func NewWithPool(p pool) (*Warehouse, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Warehouse{pool: p}, nil
}

// Close releases the underlying pool resources.
func (w *Warehouse) Close() {
	if w == nil || w.pool == nil {
		return
	}
	w.pool.Close()
}

// ListDatasets returns the schema names visible to the connection.
func (w *Warehouse) ListDatasets(ctx context.Context) ([]string, error) {
	names, err := w.queryNames(ctx, `SELECT schema_name FROM information_schema.schemata ORDER BY schema_name`)
	if err != nil {
		return nil, ingest.WarehouseError("list datasets", err)
	}
	return names, nil
}

// CreateDataset creates a schema named datasetID.
func (w *Warehouse) CreateDataset(ctx context.Context, datasetID string) error {
	if err := checkIdentifier(datasetID); err != nil {
		return ingest.WarehouseError("create dataset", err)
	}
	query := "CREATE SCHEMA " + pgx.Identifier{datasetID}.Sanitize()
	if _, err := w.pool.Exec(ctx, query); err != nil {
		return ingest.WarehouseError("create dataset", err)
	}
	return nil
}

// ListTables returns the base tables in schema datasetID.
func (w *Warehouse) ListTables(ctx context.Context, datasetID string) ([]string, error) {
	names, err := w.queryNames(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`,
		datasetID)
	if err != nil {
		return nil, ingest.WarehouseError("list tables", err)
	}
	return names, nil
}

// CreateTable creates datasetID.tableID with one column per schema field.
func (w *Warehouse) CreateTable(ctx context.Context, datasetID, tableID string, schema ingest.Schema) error {
	query, err := createTableSQL(datasetID, tableID, schema)
	if err != nil {
		return ingest.WarehouseError("create table", err)
	}
	if _, err := w.pool.Exec(ctx, query); err != nil {
		return ingest.WarehouseError("create table", err)
	}
	return nil
}

// InsertRows appends rows with a single COPY.
func (w *Warehouse) InsertRows(ctx context.Context, datasetID, tableID string, rows []ingest.Row) error {
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{r.ID, r.Name, r.Height, r.Weight}, nil
	})
	n, err := w.pool.CopyFrom(ctx, pgx.Identifier{datasetID, tableID}, ingest.ItemSchema.Columns(), src)
	if err != nil {
		return ingest.WarehouseError("insert rows", err)
	}
	if n != int64(len(rows)) {
		return ingest.WarehouseError("insert rows", fmt.Errorf("copied %d of %d rows", n, len(rows)))
	}
	return nil
}

func (w *Warehouse) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := w.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func createTableSQL(datasetID, tableID string, schema ingest.Schema) (string, error) {
	if err := checkIdentifier(datasetID); err != nil {
		return "", err
	}
	if err := checkIdentifier(tableID); err != nil {
		return "", err
	}
	if len(schema) == 0 {
		return "", fmt.Errorf("table %s.%s: schema is empty", datasetID, tableID)
	}
	cols := make([]string, 0, len(schema))
	for _, f := range schema {
		colType, err := columnType(f.Type)
		if err != nil {
			return "", err
		}
		col := pgx.Identifier{f.Name}.Sanitize() + " " + colType
		if f.Required {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)",
		pgx.Identifier{datasetID, tableID}.Sanitize(), strings.Join(cols, ", ")), nil
}

func columnType(t ingest.FieldType) (string, error) {
	switch t {
	case ingest.FieldTypeInteger:
		return "BIGINT", nil
	case ingest.FieldTypeString:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("unsupported field type %q", t)
	}
}

func checkIdentifier(id string) error {
	if !validIdentifier.MatchString(id) {
		return fmt.Errorf("invalid identifier %q", id)
	}
	return nil
}
