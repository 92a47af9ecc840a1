package ingest

import (
	"context"
	"time"
)

// BlobStore reads and writes whole objects in a flat namespace.
type BlobStore interface {
	// GetObject returns ErrObjectNotFound when nothing is stored at path.
	GetObject(ctx context.Context, path string) ([]byte, error)
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Getter issues a GET and decodes the JSON body into out.
type Getter interface {
	GetJSON(ctx context.Context, url string, out any) error
}

// Warehouse is the analytical store rows are loaded into.
type Warehouse interface {
	ListDatasets(ctx context.Context) ([]string, error)
	CreateDataset(ctx context.Context, datasetID string) error
	ListTables(ctx context.Context, datasetID string) ([]string, error)
	CreateTable(ctx context.Context, datasetID, tableID string, schema Schema) error
	InsertRows(ctx context.Context, datasetID, tableID string, rows []Row) error
}

// Publisher pushes run notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// RunStore keeps a history of runs.
type RunStore interface {
	RecordRun(ctx context.Context, run RunRecord) error
	// GetRun returns ErrRunNotFound for unknown IDs.
	GetRun(ctx context.Context, id string) (RunRecord, error)
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]RunRecord, error)
}
