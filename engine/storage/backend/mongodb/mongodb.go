package entitystoragemongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/storage/storage_common"
	"github.com/xiaonanln/saganet/engine/uuid"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

const (
	_DEFAULT_DB_NAME = "saganet"
)

type mongoDBTableStorage struct {
	session *mgo.Session
	dbname  string
}

type rowDoc struct {
	Id        string                 `bson:"_id"`
	RowKey    string                 `bson:"rk"`
	ETag      string                 `bson:"etag"`
	Timestamp time.Time              `bson:"ts"`
	Columns   map[string]interface{} `bson:"cols"`
}

// OpenMongoDB opens mongodb as table storage; each table is one collection keyed by partition key
func OpenMongoDB(url string, dbname string) (storagecommon.TableStorage, error) {
	gwlog.Debugf("Connecting MongoDB ...")
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb dial failed")
	}

	session.SetMode(mgo.Monotonic, true)
	if dbname == "" {
		// if db is not specified, use default
		dbname = _DEFAULT_DB_NAME
	}
	return &mongoDBTableStorage{
		session: session,
		dbname:  dbname,
	}, nil
}

func (es *mongoDBTableStorage) OpenTable(ctx context.Context, name string) (storagecommon.Table, error) {
	// collections are created on first insert
	return &mongoTable{storage: es, name: name}, nil
}

func (es *mongoDBTableStorage) Close() error {
	es.session.Close()
	return nil
}

type mongoTable struct {
	storage *mongoDBTableStorage
	name    string
}

func (t *mongoTable) Name() string {
	return t.name
}

// collection returns the collection on a copied session; the caller must close the session
func (t *mongoTable) collection(ctx context.Context) (*mgo.Collection, *mgo.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s := t.storage.session.Copy()
	return s.DB(t.storage.dbname).C(t.name), s, nil
}

func (t *mongoTable) Get(ctx context.Context, pk, rk string) (storagecommon.Row, error) {
	col, s, err := t.collection(ctx)
	if err != nil {
		return storagecommon.Row{}, err
	}
	defer s.Close()

	var doc rowDoc
	err = col.FindId(pk).One(&doc)
	if err == mgo.ErrNotFound || (err == nil && doc.RowKey != rk) {
		return storagecommon.Row{}, storagecommon.ErrNotFound
	} else if err != nil {
		return storagecommon.Row{}, err
	}
	return docToRow(doc), nil
}

func (t *mongoTable) Insert(ctx context.Context, row storagecommon.Row) (string, error) {
	col, s, err := t.collection(ctx)
	if err != nil {
		return "", err
	}
	defer s.Close()

	doc := rowToDoc(row)
	if err := col.Insert(doc); err != nil {
		if mgo.IsDup(err) {
			return "", storagecommon.ErrAlreadyExists
		}
		return "", err
	}
	return doc.ETag, nil
}

func (t *mongoTable) Replace(ctx context.Context, row storagecommon.Row) (string, error) {
	col, s, err := t.collection(ctx)
	if err != nil {
		return "", err
	}
	defer s.Close()

	doc := rowToDoc(row)
	err = col.Update(bson.M{"_id": row.PartitionKey, "etag": row.ETag}, doc)
	if err == mgo.ErrNotFound {
		return "", t.missOrConflict(col, row.PartitionKey)
	} else if err != nil {
		return "", err
	}
	return doc.ETag, nil
}

func (t *mongoTable) Delete(ctx context.Context, row storagecommon.Row) error {
	col, s, err := t.collection(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	err = col.Remove(bson.M{"_id": row.PartitionKey, "etag": row.ETag})
	if err == mgo.ErrNotFound {
		return t.missOrConflict(col, row.PartitionKey)
	}
	return err
}

// missOrConflict tells a missing document from an etag mismatch after a guarded write matched nothing
func (t *mongoTable) missOrConflict(col *mgo.Collection, pk string) error {
	n, err := col.FindId(pk).Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return storagecommon.ErrNotFound
	}
	return storagecommon.ErrConflict
}

func (t *mongoTable) List(ctx context.Context, top int, continuation string) (storagecommon.Segment, error) {
	var seg storagecommon.Segment
	col, s, err := t.collection(ctx)
	if err != nil {
		return seg, err
	}
	defer s.Close()

	query := bson.M{}
	if continuation != "" {
		query["_id"] = bson.M{"$gt": continuation}
	}
	q := col.Find(query).Sort("_id")
	if top > 0 {
		q = q.Limit(top + 1)
	}
	var docs []rowDoc
	if err := q.All(&docs); err != nil {
		return seg, err
	}
	if top > 0 && len(docs) > top {
		docs = docs[:top]
		seg.Continuation = docs[top-1].Id
	}
	seg.Rows = make([]storagecommon.Row, len(docs))
	for i, doc := range docs {
		seg.Rows[i] = docToRow(doc)
	}
	return seg, nil
}

func rowToDoc(row storagecommon.Row) rowDoc {
	return rowDoc{
		Id:        row.PartitionKey,
		RowKey:    row.RowKey,
		ETag:      uuid.GenUUID(),
		Timestamp: time.Now().UTC(),
		Columns:   row.Columns,
	}
}

func docToRow(doc rowDoc) storagecommon.Row {
	cols := make(map[string]interface{}, len(doc.Columns))
	for name, v := range doc.Columns {
		switch val := v.(type) {
		case int:
			// bson int32 values decode as int
			cols[name] = int32(val)
		case time.Time:
			cols[name] = val.UTC()
		case bson.Binary:
			cols[name] = val.Data
		default:
			cols[name] = v
		}
	}
	return storagecommon.Row{
		PartitionKey: doc.Id,
		RowKey:       doc.RowKey,
		ETag:         doc.ETag,
		Timestamp:    doc.Timestamp.UTC(),
		Columns:      cols,
	}
}
