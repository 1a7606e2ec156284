package blobtypes

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when the blob does not exist
var ErrNotFound = errors.New("blob not found")

// BlobStore defines the interface of a blob storage backend
//
// Blob names are slash separated paths relative to the container of the deployment tier.
type BlobStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Close() error
}
