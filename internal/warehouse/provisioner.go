// Package warehouse ensures the destination dataset and table exist before rows are loaded.
package warehouse

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// Provisioner performs check-then-create provisioning against a Warehouse.
//
// The check and the create are separate calls: two concurrent runs may both decide to
// create, and the loser gets whatever error the backend returns for a duplicate.
type Provisioner struct {
	warehouse ingest.Warehouse
	logger    *zap.Logger
}

// NewProvisioner constructs a Provisioner.
func NewProvisioner(warehouse ingest.Warehouse, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{warehouse: warehouse, logger: logger}
}

// EnsureDataset creates datasetID unless it is already listed. It reports whether a create was issued.
func (p *Provisioner) EnsureDataset(ctx context.Context, datasetID string) (bool, error) {
	p.logger.Info("ensuring dataset exists", zap.String("dataset", datasetID))
	datasets, err := p.warehouse.ListDatasets(ctx)
	if err != nil {
		return false, fmt.Errorf("list datasets: %w", err)
	}
	if slices.Contains(datasets, datasetID) {
		return false, nil
	}
	if err := p.warehouse.CreateDataset(ctx, datasetID); err != nil {
		return false, fmt.Errorf("create dataset %s: %w", datasetID, err)
	}
	p.logger.Info("dataset created", zap.String("dataset", datasetID))
	return true, nil
}

// EnsureTable creates tableID with schema unless it is already listed in datasetID.
// An existing table is left untouched even if its schema differs.
func (p *Provisioner) EnsureTable(ctx context.Context, datasetID, tableID string, schema ingest.Schema) (bool, error) {
	p.logger.Info("ensuring table exists", zap.String("dataset", datasetID), zap.String("table", tableID))
	tables, err := p.warehouse.ListTables(ctx, datasetID)
	if err != nil {
		return false, fmt.Errorf("list tables: %w", err)
	}
	if slices.Contains(tables, tableID) {
		return false, nil
	}
	if err := p.warehouse.CreateTable(ctx, datasetID, tableID, schema); err != nil {
		return false, fmt.Errorf("create table %s.%s: %w", datasetID, tableID, err)
	}
	p.logger.Info("table created", zap.String("dataset", datasetID), zap.String("table", tableID))
	return true, nil
}
