package kvdbmemory

import (
	"context"
	"sync"
	"time"

	"github.com/xiaonanln/saganet/engine/kvdb/types"
)

type item struct {
	val      string
	expireAt time.Time
}

// MemoryKVDB is an in-process KVDB backend, used for local runs and tests
type MemoryKVDB struct {
	sync.Mutex
	items map[string]item
	now   func() time.Time
}

// OpenMemoryKVDB creates an empty in-memory KVDB
func OpenMemoryKVDB() *MemoryKVDB {
	return &MemoryKVDB{
		items: map[string]item{},
		now:   time.Now,
	}
}

var _ kvdbtypes.KVDBEngine = (*MemoryKVDB)(nil)

// SetClock replaces the time source used for expiry
func (db *MemoryKVDB) SetClock(now func() time.Time) {
	db.Lock()
	db.now = now
	db.Unlock()
}

func (db *MemoryKVDB) Get(ctx context.Context, key string) (string, bool, error) {
	db.Lock()
	defer db.Unlock()
	it, ok := db.items[key]
	if !ok {
		return "", false, nil
	}
	if !db.now().Before(it.expireAt) {
		delete(db.items, key)
		return "", false, nil
	}
	return it.val, true, nil
}

func (db *MemoryKVDB) SetEx(ctx context.Context, key string, val string, ttl time.Duration) error {
	db.Lock()
	db.items[key] = item{val: val, expireAt: db.now().Add(ttl)}
	db.Unlock()
	return nil
}

func (db *MemoryKVDB) Del(ctx context.Context, key string) error {
	db.Lock()
	delete(db.items, key)
	db.Unlock()
	return nil
}

func (db *MemoryKVDB) Close() error {
	return nil
}

func (db *MemoryKVDB) IsConnectionError(err error) bool {
	return false
}
