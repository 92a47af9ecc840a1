// Package bigquery implements the warehouse on Google BigQuery.
package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// Config controls dataset placement.
type Config struct {
	// Location is applied to datasets this warehouse creates; empty uses the project default.
	Location string
}

// Warehouse stores rows in BigQuery tables.
type Warehouse struct {
	client   *bigquery.Client
	location string
}

// New wraps a BigQuery client.
func New(client *bigquery.Client, cfg Config) (*Warehouse, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client is required")
	}
	return &Warehouse{client: client, location: cfg.Location}, nil
}

// ListDatasets returns the dataset IDs in the client's project.
func (w *Warehouse) ListDatasets(ctx context.Context) ([]string, error) {
	it := w.client.Datasets(ctx)
	var ids []string
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, ingest.WarehouseError("list datasets", err)
		}
		ids = append(ids, ds.DatasetID)
	}
	return ids, nil
}

// CreateDataset creates datasetID in the configured location.
func (w *Warehouse) CreateDataset(ctx context.Context, datasetID string) error {
	meta := &bigquery.DatasetMetadata{Location: w.location}
	if err := w.client.Dataset(datasetID).Create(ctx, meta); err != nil {
		return ingest.WarehouseError("create dataset", err)
	}
	return nil
}

// ListTables returns the table IDs in datasetID.
func (w *Warehouse) ListTables(ctx context.Context, datasetID string) ([]string, error) {
	it := w.client.Dataset(datasetID).Tables(ctx)
	var ids []string
	for {
		t, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, ingest.WarehouseError("list tables", err)
		}
		ids = append(ids, t.TableID)
	}
	return ids, nil
}

// CreateTable creates datasetID.tableID with schema.
func (w *Warehouse) CreateTable(ctx context.Context, datasetID, tableID string, schema ingest.Schema) error {
	bqSchema, err := toBigQuerySchema(schema)
	if err != nil {
		return ingest.WarehouseError("create table", err)
	}
	meta := &bigquery.TableMetadata{Schema: bqSchema}
	if err := w.client.Dataset(datasetID).Table(tableID).Create(ctx, meta); err != nil {
		return ingest.WarehouseError("create table", err)
	}
	return nil
}

// InsertRows streams rows in one insertAll request.
func (w *Warehouse) InsertRows(ctx context.Context, datasetID, tableID string, rows []ingest.Row) error {
	inserter := w.client.Dataset(datasetID).Table(tableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return ingest.WarehouseError("insert rows", err)
	}
	return nil
}

func toBigQuerySchema(schema ingest.Schema) (bigquery.Schema, error) {
	out := make(bigquery.Schema, 0, len(schema))
	for _, f := range schema {
		var ft bigquery.FieldType
		switch f.Type {
		case ingest.FieldTypeInteger:
			ft = bigquery.IntegerFieldType
		case ingest.FieldTypeString:
			ft = bigquery.StringFieldType
		default:
			return nil, fmt.Errorf("unsupported field type %q", f.Type)
		}
		out = append(out, &bigquery.FieldSchema{Name: f.Name, Type: ft, Required: f.Required})
	}
	return out, nil
}
