package storagecommon

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when the row does not exist
	ErrNotFound = errors.New("row not found")
	// ErrAlreadyExists is returned by Insert when the row exists
	ErrAlreadyExists = errors.New("row already exists")
	// ErrConflict is returned by Replace and Delete when the row's etag does not match
	ErrConflict = errors.New("etag mismatch")
)

// Row is one entity row of a table
//
// Column values are one of string, bool, int32, int64, float64, time.Time, []byte.
type Row struct {
	PartitionKey string
	RowKey       string
	ETag         string
	Timestamp    time.Time
	Columns      map[string]interface{}
}

// Segment is one page of a table scan. An empty Continuation means the scan is exhausted.
type Segment struct {
	Rows         []Row
	Continuation string
}

// Table defines the interface of a table in a table storage backend
type Table interface {
	Name() string
	// Get returns ErrNotFound when the row does not exist
	Get(ctx context.Context, partitionKey, rowKey string) (Row, error)
	// Insert returns ErrAlreadyExists when the row exists
	Insert(ctx context.Context, row Row) (etag string, err error)
	// Replace overwrites the row iff row.ETag matches, otherwise returns ErrConflict
	Replace(ctx context.Context, row Row) (etag string, err error)
	// Delete removes the row iff row.ETag matches, otherwise returns ErrConflict
	Delete(ctx context.Context, row Row) error
	// List returns at most top rows after the continuation token
	List(ctx context.Context, top int, continuation string) (Segment, error)
}

// TableStorage defines the interface of table storage backends
type TableStorage interface {
	// OpenTable returns the table with the given name, creating it if it does not exist
	OpenTable(ctx context.Context, name string) (Table, error)
	Close() error
}
