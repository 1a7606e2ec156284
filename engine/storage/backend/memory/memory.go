package entitystoragememory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiaonanln/saganet/engine/storage/storage_common"
	"github.com/xiaonanln/saganet/engine/uuid"
)

// MemoryTableStorage keeps tables in process memory, used for local runs and tests
type MemoryTableStorage struct {
	lock   sync.Mutex
	tables map[string]*memoryTable
}

// OpenMemory creates an empty in-memory table storage
func OpenMemory() *MemoryTableStorage {
	return &MemoryTableStorage{
		tables: map[string]*memoryTable{},
	}
}

var _ storagecommon.TableStorage = (*MemoryTableStorage)(nil)

func (ms *MemoryTableStorage) OpenTable(ctx context.Context, name string) (storagecommon.Table, error) {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	t := ms.tables[name]
	if t == nil {
		t = &memoryTable{name: name, rows: map[rowKey]storagecommon.Row{}}
		ms.tables[name] = t
	}
	return t, nil
}

// TableNames returns the names of all tables created so far
func (ms *MemoryTableStorage) TableNames() []string {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	names := make([]string, 0, len(ms.tables))
	for name := range ms.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ms *MemoryTableStorage) Close() error {
	return nil
}

type rowKey struct {
	pk, rk string
}

type memoryTable struct {
	name string
	lock sync.Mutex
	rows map[rowKey]storagecommon.Row
}

func (t *memoryTable) Name() string {
	return t.name
}

func copyRow(row storagecommon.Row) storagecommon.Row {
	cols := make(map[string]interface{}, len(row.Columns))
	for k, v := range row.Columns {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		cols[k] = v
	}
	row.Columns = cols
	return row
}

func (t *memoryTable) Get(ctx context.Context, pk, rk string) (storagecommon.Row, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	row, ok := t.rows[rowKey{pk, rk}]
	if !ok {
		return storagecommon.Row{}, storagecommon.ErrNotFound
	}
	return copyRow(row), nil
}

func (t *memoryTable) Insert(ctx context.Context, row storagecommon.Row) (string, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	key := rowKey{row.PartitionKey, row.RowKey}
	if _, ok := t.rows[key]; ok {
		return "", storagecommon.ErrAlreadyExists
	}
	return t.put(key, row), nil
}

func (t *memoryTable) Replace(ctx context.Context, row storagecommon.Row) (string, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	key := rowKey{row.PartitionKey, row.RowKey}
	cur, ok := t.rows[key]
	if !ok {
		return "", storagecommon.ErrNotFound
	}
	if row.ETag != "*" && cur.ETag != row.ETag {
		return "", storagecommon.ErrConflict
	}
	return t.put(key, row), nil
}

func (t *memoryTable) Delete(ctx context.Context, row storagecommon.Row) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	key := rowKey{row.PartitionKey, row.RowKey}
	cur, ok := t.rows[key]
	if !ok {
		return storagecommon.ErrNotFound
	}
	if row.ETag != "*" && cur.ETag != row.ETag {
		return storagecommon.ErrConflict
	}
	delete(t.rows, key)
	return nil
}

func (t *memoryTable) put(key rowKey, row storagecommon.Row) string {
	row = copyRow(row)
	row.ETag = uuid.GenUUID()
	row.Timestamp = time.Now().UTC()
	t.rows[key] = row
	return row.ETag
}

// List pages through rows ordered by partition key; the continuation is the last partition key returned
func (t *memoryTable) List(ctx context.Context, top int, continuation string) (storagecommon.Segment, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	keys := make([]rowKey, 0, len(t.rows))
	for key := range t.rows {
		if continuation == "" || key.pk > continuation {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pk != keys[j].pk {
			return keys[i].pk < keys[j].pk
		}
		return keys[i].rk < keys[j].rk
	})

	var seg storagecommon.Segment
	if top > 0 && len(keys) > top {
		keys = keys[:top]
		seg.Continuation = keys[len(keys)-1].pk
	}
	seg.Rows = make([]storagecommon.Row, len(keys))
	for i, key := range keys {
		seg.Rows[i] = copyRow(t.rows[key])
	}
	return seg, nil
}
