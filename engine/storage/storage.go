package storage

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/opmon"
	"github.com/xiaonanln/saganet/engine/storage/storage_common"
)

// Model carries the identity, version and metadata of a persisted entity. Embed it in entity structs.
type Model struct {
	Id         string            `table:"-"`
	ETag       string            `table:"-" json:"-"`
	Timestamp  time.Time         `table:"-" json:"-"`
	Attributes map[string]string `json:",omitempty"`

	// columns read from the store that could not be decoded
	rawColumns map[string]string
}

func (m *Model) model() *Model {
	return m
}

// RawColumn returns the undecodable text of a JSON column read from the store
func (m *Model) RawColumn(name string) (string, bool) {
	text, ok := m.rawColumns[name]
	return text, ok
}

// ClearRawColumn drops the undecodable text of a JSON column so the next write stores the field value
func (m *Model) ClearRawColumn(name string) {
	delete(m.rawColumns, name)
}

// Entity is implemented by structs embedding Model
type Entity interface {
	model() *Model
	// BaseTableName is the table name without the tier affix
	BaseTableName() string
}

// Defaulter is implemented by entities with non-zero initial values
type Defaulter interface {
	SetDefaults()
}

// EntityPtr constrains a pointer to an entity struct T
type EntityPtr[T any] interface {
	*T
	Entity
}

// Store loads and saves entities of type T in the tier's table
type Store[T any, PT EntityPtr[T]] struct {
	svc       *storagecommon.Service
	tier      config.Tier
	tableName string
	now       func() time.Time
}

// NewStore creates the store of entity type T in table {tierAffix}{BaseTableName}
func NewStore[T any, PT EntityPtr[T]](svc *storagecommon.Service, tier config.Tier) *Store[T, PT] {
	var zero PT = new(T)
	return &Store[T, PT]{
		svc:       svc,
		tier:      tier,
		tableName: tier.Affix() + zero.BaseTableName(),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for default ids
func (s *Store[T, PT]) SetClock(now func() time.Time) {
	s.now = now
}

// TableName returns the tier-qualified table name
func (s *Store[T, PT]) TableName() string {
	return s.tableName
}

// Tier returns the deployment tier of the store
func (s *Store[T, PT]) Tier() config.Tier {
	return s.tier
}

// New returns a new entity with its default values
func (s *Store[T, PT]) New() PT {
	var e PT = new(T)
	if d, ok := any(e).(Defaulter); ok {
		d.SetDefaults()
	}
	return e
}

func (s *Store[T, PT]) table(ctx context.Context) (storagecommon.Table, error) {
	t, err := s.svc.Table(ctx, s.tableName)
	return t, errors.Wrapf(err, "open table %s", s.tableName)
}

// Load returns the entity with the id, or nil when it does not exist
func (s *Store[T, PT]) Load(ctx context.Context, id string) (PT, error) {
	if id == "" {
		return nil, nil
	}
	t, err := s.table(ctx)
	if err != nil {
		return nil, err
	}

	op := opmon.StartOperation("storage.load")
	row, err := t.Get(ctx, id, consts.SHARED_ROW_KEY)
	op.Finish(consts.STORAGE_OP_WARN_THRESHOLD)
	if err == storagecommon.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "load %s/%s", s.tableName, id)
	}
	if consts.DEBUG_SAVE_LOAD {
		gwlog.Debugf("storage: LOADED %s %s", s.tableName, id)
	}
	return s.fromRow(row), nil
}

// Insert creates the entity. With checkExisting the store is read first; an existing entity
// with the same id makes Insert return false without touching it. An entity without id gets
// the current time in ticks as id.
func (s *Store[T, PT]) Insert(ctx context.Context, e PT, checkExisting bool) (bool, error) {
	m := e.model()
	if m.Id == "" {
		m.Id = strconv.FormatInt(Ticks(s.now()), 10)
	}
	if checkExisting {
		existing, err := s.Load(ctx, m.Id)
		if err != nil {
			return false, err
		}
		if existing != nil {
			return false, nil
		}
	}

	t, err := s.table(ctx)
	if err != nil {
		return false, err
	}
	row, kept, err := s.toRow(e)
	if err != nil {
		return false, err
	}

	op := opmon.StartOperation("storage.insert")
	etag, err := t.Insert(ctx, row)
	op.Finish(consts.STORAGE_OP_WARN_THRESHOLD)
	if err == storagecommon.ErrAlreadyExists {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "insert %s/%s", s.tableName, m.Id)
	}
	m.ETag = etag
	m.rawColumns = kept
	return true, nil
}

// Replace writes the entity back iff nobody changed it since it was loaded. A lost race returns false.
func (s *Store[T, PT]) Replace(ctx context.Context, e PT) (bool, error) {
	m := e.model()
	if m.ETag == "" {
		return false, errors.Errorf("replace %s/%s: entity was never loaded or inserted", s.tableName, m.Id)
	}
	t, err := s.table(ctx)
	if err != nil {
		return false, err
	}
	row, kept, err := s.toRow(e)
	if err != nil {
		return false, err
	}

	op := opmon.StartOperation("storage.replace")
	etag, err := t.Replace(ctx, row)
	op.Finish(consts.STORAGE_OP_WARN_THRESHOLD)
	if err == storagecommon.ErrConflict || err == storagecommon.ErrNotFound {
		if consts.DEBUG_SAVE_LOAD {
			gwlog.Debugf("storage: replace %s %s lost: %s", s.tableName, m.Id, err)
		}
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "replace %s/%s", s.tableName, m.Id)
	}
	m.ETag = etag
	m.rawColumns = kept
	return true, nil
}

// Delete removes the entity iff nobody changed it since it was loaded. A lost race returns false.
func (s *Store[T, PT]) Delete(ctx context.Context, e PT) (bool, error) {
	m := e.model()
	if m.ETag == "" {
		return false, errors.Errorf("delete %s/%s: entity was never loaded or inserted", s.tableName, m.Id)
	}
	t, err := s.table(ctx)
	if err != nil {
		return false, err
	}

	op := opmon.StartOperation("storage.delete")
	err = t.Delete(ctx, storagecommon.Row{PartitionKey: m.Id, RowKey: consts.SHARED_ROW_KEY, ETag: m.ETag})
	op.Finish(consts.STORAGE_OP_WARN_THRESHOLD)
	if err == storagecommon.ErrConflict || err == storagecommon.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "delete %s/%s", s.tableName, m.Id)
	}
	return true, nil
}

// ScanAll reads the whole table page by page, stopping once limit entities were read (limit <= 0
// reads everything). Entities of the other tier group are dropped afterwards: the test tier keeps
// only ids prefixed with Test_, every other tier drops them.
func (s *Store[T, PT]) ScanAll(ctx context.Context, limit int) ([]PT, error) {
	t, err := s.table(ctx)
	if err != nil {
		return nil, err
	}

	op := opmon.StartOperation("storage.scan")
	defer op.Finish(consts.STORAGE_OP_WARN_THRESHOLD * 10)

	var rows []storagecommon.Row
	continuation := ""
	for {
		top := consts.SCAN_PAGE_LIMIT
		if limit > 0 && limit-len(rows) < top {
			top = limit - len(rows)
		}
		seg, err := t.List(ctx, top, continuation)
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", s.tableName)
		}
		rows = append(rows, seg.Rows...)
		continuation = seg.Continuation
		if continuation == "" || (limit > 0 && len(rows) >= limit) {
			break
		}
	}

	entities := make([]PT, 0, len(rows))
	for _, row := range rows {
		if s.visibleInTier(row.PartitionKey) {
			entities = append(entities, s.fromRow(row))
		}
	}
	return entities, nil
}

func (s *Store[T, PT]) visibleInTier(id string) bool {
	isTestID := strings.HasPrefix(id, consts.TEST_ID_PREFIX)
	return isTestID == (s.tier == config.TestTier)
}

// SingletonID returns the id of the single entity of the table in this tier
func (s *Store[T, PT]) SingletonID() string {
	var zero PT = new(T)
	return s.tier.String() + zero.BaseTableName()
}

// LoadSingleton loads the single entity of the table, inserting the defaults on first use
func (s *Store[T, PT]) LoadSingleton(ctx context.Context) (PT, error) {
	id := s.SingletonID()
	e, err := s.Load(ctx, id)
	if err != nil || e != nil {
		return e, err
	}

	e = s.New()
	e.model().Id = id
	ok, err := s.Insert(ctx, e, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		// inserted concurrently by someone else
		return s.Load(ctx, id)
	}
	return e, nil
}

func (s *Store[T, PT]) toRow(e PT) (storagecommon.Row, map[string]string, error) {
	m := e.model()
	cols, kept, err := encodeColumns(reflect.ValueOf(e).Elem(), m.rawColumns)
	if err != nil {
		return storagecommon.Row{}, nil, errors.Wrapf(err, "encode %s/%s", s.tableName, m.Id)
	}
	return storagecommon.Row{
		PartitionKey: m.Id,
		RowKey:       consts.SHARED_ROW_KEY,
		ETag:         m.ETag,
		Columns:      cols,
	}, kept, nil
}

func (s *Store[T, PT]) fromRow(row storagecommon.Row) PT {
	e := s.New()
	raw := decodeColumns(reflect.ValueOf(e).Elem(), row.Columns)
	m := e.model()
	m.Id = row.PartitionKey
	m.ETag = row.ETag
	m.Timestamp = row.Timestamp
	m.rawColumns = raw
	return e
}

// Ticks converts t to 100ns intervals since 0001-01-01 UTC
func Ticks(t time.Time) int64 {
	const unixEpochTicks = 621355968000000000
	return t.UnixNano()/100 + unixEpochTicks
}
