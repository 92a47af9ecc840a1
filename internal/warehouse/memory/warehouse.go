// Package memory provides an in-process Warehouse for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// ErrAlreadyExists is returned when creating a dataset or table that is already present.
var ErrAlreadyExists = errors.New("already exists")

// ErrNotFound is returned when addressing a dataset or table that does not exist.
var ErrNotFound = errors.New("not found")

type table struct {
	schema ingest.Schema
	rows   []ingest.Row
}

// Calls counts warehouse operations, for assertions in tests.
type Calls struct {
	ListDatasets  int
	CreateDataset int
	ListTables    int
	CreateTable   int
	InsertRows    int
}

// Warehouse keeps datasets, tables and rows in maps.
type Warehouse struct {
	mu       sync.Mutex
	datasets map[string]map[string]*table
	calls    Calls
	// InsertErr, when set, is returned by every InsertRows call.
	InsertErr error
}

// New creates an empty Warehouse.
func New() *Warehouse {
	return &Warehouse{datasets: make(map[string]map[string]*table)}
}

// ListDatasets returns dataset IDs in sorted order.
func (w *Warehouse) ListDatasets(_ context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls.ListDatasets++

	ids := make([]string, 0, len(w.datasets))
	for id := range w.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateDataset adds an empty dataset.
func (w *Warehouse) CreateDataset(_ context.Context, datasetID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls.CreateDataset++

	if _, ok := w.datasets[datasetID]; ok {
		return ingest.WarehouseError("create dataset", fmt.Errorf("dataset %s: %w", datasetID, ErrAlreadyExists))
	}
	w.datasets[datasetID] = make(map[string]*table)
	return nil
}

// ListTables returns table IDs of datasetID in sorted order.
func (w *Warehouse) ListTables(_ context.Context, datasetID string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls.ListTables++

	ds, ok := w.datasets[datasetID]
	if !ok {
		return nil, ingest.WarehouseError("list tables", fmt.Errorf("dataset %s: %w", datasetID, ErrNotFound))
	}
	ids := make([]string, 0, len(ds))
	for id := range ds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateTable adds an empty table with schema.
func (w *Warehouse) CreateTable(_ context.Context, datasetID, tableID string, schema ingest.Schema) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls.CreateTable++

	ds, ok := w.datasets[datasetID]
	if !ok {
		return ingest.WarehouseError("create table", fmt.Errorf("dataset %s: %w", datasetID, ErrNotFound))
	}
	if _, ok := ds[tableID]; ok {
		return ingest.WarehouseError("create table", fmt.Errorf("table %s.%s: %w", datasetID, tableID, ErrAlreadyExists))
	}
	ds[tableID] = &table{schema: append(ingest.Schema(nil), schema...)}
	return nil
}

// InsertRows appends rows to the table.
func (w *Warehouse) InsertRows(_ context.Context, datasetID, tableID string, rows []ingest.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls.InsertRows++

	if w.InsertErr != nil {
		return ingest.WarehouseError("insert rows", w.InsertErr)
	}
	tbl, err := w.table(datasetID, tableID)
	if err != nil {
		return ingest.WarehouseError("insert rows", err)
	}
	tbl.rows = append(tbl.rows, rows...)
	return nil
}

// Rows returns a copy of the rows stored in datasetID.tableID.
func (w *Warehouse) Rows(datasetID, tableID string) []ingest.Row {
	w.mu.Lock()
	defer w.mu.Unlock()

	tbl, err := w.table(datasetID, tableID)
	if err != nil {
		return nil
	}
	return append([]ingest.Row(nil), tbl.rows...)
}

// Schema returns the schema of datasetID.tableID, if it exists.
func (w *Warehouse) Schema(datasetID, tableID string) (ingest.Schema, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tbl, err := w.table(datasetID, tableID)
	if err != nil {
		return nil, false
	}
	return append(ingest.Schema(nil), tbl.schema...), true
}

// Calls returns the operation counters.
func (w *Warehouse) Calls() Calls {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func (w *Warehouse) table(datasetID, tableID string) (*table, error) {
	ds, ok := w.datasets[datasetID]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, ErrNotFound)
	}
	tbl, ok := ds[tableID]
	if !ok {
		return nil, fmt.Errorf("table %s.%s: %w", datasetID, tableID, ErrNotFound)
	}
	return tbl, nil
}
