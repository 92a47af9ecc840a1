package ingest

import (
	"errors"
	"fmt"
)

// ErrObjectNotFound is returned by BlobStore.GetObject when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ErrRunNotFound is returned by RunStore.GetRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Kind classifies failures surfaced by collaborators.
type Kind string

// Error kinds.
const (
	KindTransport Kind = "transport"
	KindStorage   Kind = "storage"
	KindWarehouse Kind = "warehouse"
)

// Kind sentinels for errors.Is.
var (
	ErrTransport = &Error{Kind: KindTransport}
	ErrStorage   = &Error{Kind: KindStorage}
	ErrWarehouse = &Error{Kind: KindWarehouse}
)

// Error wraps a collaborator failure with its kind and the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrTransport) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// TransportError wraps an upstream HTTP failure.
func TransportError(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// StorageError wraps a blob store failure.
func StorageError(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// WarehouseError wraps a warehouse failure.
func WarehouseError(op string, err error) error {
	return &Error{Kind: KindWarehouse, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
