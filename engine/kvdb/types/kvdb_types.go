package kvdbtypes

import (
	"context"
	"time"
)

// KVDBEngine defines the interface of a KVDB engine implementation
//
// Values expire after the ttl given to SetEx. Get reports ok=false for absent or expired keys.
type KVDBEngine interface {
	Get(ctx context.Context, key string) (val string, ok bool, err error)
	SetEx(ctx context.Context, key string, val string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
	IsConnectionError(err error) bool
}
