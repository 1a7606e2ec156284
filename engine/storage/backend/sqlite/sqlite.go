package entitystoragesqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/storage/storage_common"
	"github.com/xiaonanln/saganet/engine/uuid"
	_ "modernc.org/sqlite"
)

// InMemory is the file name that opens a private in-memory database
const InMemory = ":memory:"

type sqliteTableStorage struct {
	db *sql.DB
}

// OpenSQLite opens an sqlite database file as table storage; each table is one SQL table
func OpenSQLite(directory string, file string) (storagecommon.TableStorage, error) {
	dsn := file
	if file != InMemory {
		if directory != "" {
			if err := os.MkdirAll(directory, 0755); err != nil {
				return nil, errors.Wrapf(err, "create directory %s", directory)
			}
			dsn = filepath.Join(directory, file)
		}
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	gwlog.Debugf("Opening SQLite %s ...", dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite open failed")
	}
	// one writer at a time; also keeps a :memory: database alive across calls
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite ping failed")
	}
	return &sqliteTableStorage{db: db}, nil
}

func escapeId(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func (es *sqliteTableStorage) OpenTable(ctx context.Context, name string) (storagecommon.Table, error) {
	_, err := es.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		pk TEXT NOT NULL,
		rk TEXT NOT NULL,
		etag TEXT NOT NULL,
		ts INTEGER NOT NULL,
		cols TEXT NOT NULL,
		PRIMARY KEY (pk, rk)
	)`, escapeId(name)))
	if err != nil {
		return nil, errors.Wrapf(err, "create table %s", name)
	}
	return &sqliteTable{db: es.db, name: name, quoted: escapeId(name)}, nil
}

func (es *sqliteTableStorage) Close() error {
	return es.db.Close()
}

type sqliteTable struct {
	db     *sql.DB
	name   string
	quoted string
}

func (t *sqliteTable) Name() string {
	return t.name
}

func (t *sqliteTable) Get(ctx context.Context, pk, rk string) (storagecommon.Row, error) {
	r := t.db.QueryRowContext(ctx, "SELECT pk, rk, etag, ts, cols FROM "+t.quoted+" WHERE pk = ? AND rk = ?", pk, rk)
	row, err := scanRow(r)
	if err == sql.ErrNoRows {
		return storagecommon.Row{}, storagecommon.ErrNotFound
	}
	return row, err
}

func (t *sqliteTable) Insert(ctx context.Context, row storagecommon.Row) (string, error) {
	cols, err := encodeColumns(row.Columns)
	if err != nil {
		return "", err
	}
	etag := uuid.GenUUID()
	res, err := t.db.ExecContext(ctx, "INSERT OR IGNORE INTO "+t.quoted+" (pk, rk, etag, ts, cols) VALUES (?, ?, ?, ?, ?)",
		row.PartitionKey, row.RowKey, etag, time.Now().UTC().UnixNano(), cols)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n == 0 {
		return "", storagecommon.ErrAlreadyExists
	}
	return etag, nil
}

func (t *sqliteTable) Replace(ctx context.Context, row storagecommon.Row) (string, error) {
	cols, err := encodeColumns(row.Columns)
	if err != nil {
		return "", err
	}
	etag := uuid.GenUUID()
	res, err := t.db.ExecContext(ctx, "UPDATE "+t.quoted+" SET etag = ?, ts = ?, cols = ? WHERE pk = ? AND rk = ? AND etag = ?",
		etag, time.Now().UTC().UnixNano(), cols, row.PartitionKey, row.RowKey, row.ETag)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n == 0 {
		return "", t.missOrConflict(ctx, row)
	}
	return etag, nil
}

func (t *sqliteTable) Delete(ctx context.Context, row storagecommon.Row) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.quoted+" WHERE pk = ? AND rk = ? AND etag = ?",
		row.PartitionKey, row.RowKey, row.ETag)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return t.missOrConflict(ctx, row)
	}
	return nil
}

func (t *sqliteTable) missOrConflict(ctx context.Context, row storagecommon.Row) error {
	var n int
	err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.quoted+" WHERE pk = ? AND rk = ?", row.PartitionKey, row.RowKey).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return storagecommon.ErrNotFound
	}
	return storagecommon.ErrConflict
}

// List pages by partition key; the continuation is the last partition key returned
func (t *sqliteTable) List(ctx context.Context, top int, continuation string) (storagecommon.Segment, error) {
	var seg storagecommon.Segment
	limit := -1
	if top > 0 {
		limit = top + 1
	}
	rows, err := t.db.QueryContext(ctx, "SELECT pk, rk, etag, ts, cols FROM "+t.quoted+" WHERE pk > ? ORDER BY pk, rk LIMIT ?", continuation, limit)
	if err != nil {
		return seg, err
	}
	defer rows.Close()

	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return seg, err
		}
		seg.Rows = append(seg.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return seg, err
	}
	if top > 0 && len(seg.Rows) > top {
		seg.Rows = seg.Rows[:top]
		seg.Continuation = seg.Rows[top-1].PartitionKey
	}
	return seg, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(s scanner) (storagecommon.Row, error) {
	var row storagecommon.Row
	var ts int64
	var cols string
	if err := s.Scan(&row.PartitionKey, &row.RowKey, &row.ETag, &ts, &cols); err != nil {
		return row, err
	}
	row.Timestamp = time.Unix(0, ts).UTC()
	var err error
	row.Columns, err = decodeColumns(cols)
	return row, err
}

// typedColumn keeps the native type of a column through the JSON text stored in sqlite
type typedColumn struct {
	T string `json:"t"`
	V string `json:"v"`
}

func encodeColumns(columns map[string]interface{}) (string, error) {
	typed := make(map[string]typedColumn, len(columns))
	for name, v := range columns {
		var tc typedColumn
		switch val := v.(type) {
		case string:
			tc = typedColumn{"s", val}
		case bool:
			tc = typedColumn{"b", strconv.FormatBool(val)}
		case int32:
			tc = typedColumn{"i", strconv.FormatInt(int64(val), 10)}
		case int64:
			tc = typedColumn{"l", strconv.FormatInt(val, 10)}
		case float64:
			tc = typedColumn{"f", strconv.FormatFloat(val, 'g', -1, 64)}
		case time.Time:
			tc = typedColumn{"t", val.UTC().Format(time.RFC3339Nano)}
		case []byte:
			tc = typedColumn{"x", base64.StdEncoding.EncodeToString(val)}
		default:
			return "", errors.Errorf("column %s: unsupported type %T", name, v)
		}
		typed[name] = tc
	}
	data, err := json.Marshal(typed)
	return string(data), err
}

func decodeColumns(data string) (map[string]interface{}, error) {
	var typed map[string]typedColumn
	if err := json.Unmarshal([]byte(data), &typed); err != nil {
		return nil, errors.Wrap(err, "decode columns")
	}
	columns := make(map[string]interface{}, len(typed))
	for name, tc := range typed {
		var v interface{}
		var err error
		switch tc.T {
		case "s":
			v = tc.V
		case "b":
			v, err = strconv.ParseBool(tc.V)
		case "i":
			var i int64
			i, err = strconv.ParseInt(tc.V, 10, 32)
			v = int32(i)
		case "l":
			v, err = strconv.ParseInt(tc.V, 10, 64)
		case "f":
			v, err = strconv.ParseFloat(tc.V, 64)
		case "t":
			v, err = time.Parse(time.RFC3339Nano, tc.V)
		case "x":
			v, err = base64.StdEncoding.DecodeString(tc.V)
		default:
			err = errors.Errorf("unknown column type %q", tc.T)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decode column %s", name)
		}
		columns[name] = v
	}
	return columns, nil
}
