package entitystorageaztables

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/storage/storage_common"
)

const (
	errorCodeTableAlreadyExists = "TableAlreadyExists"
	continuationSeparator       = "\n"
)

type azTableStorage struct {
	svc *aztables.ServiceClient
}

// OpenAzureTables opens an Azure storage account (or Azurite) as table storage
func OpenAzureTables(connectionString string) (storagecommon.TableStorage, error) {
	gwlog.Debugf("Connecting Azure Table Storage ...")
	svc, err := aztables.NewServiceClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "azure tables connect failed")
	}
	return &azTableStorage{svc: svc}, nil
}

func (s *azTableStorage) OpenTable(ctx context.Context, name string) (storagecommon.Table, error) {
	client := s.svc.NewClient(name)
	if _, err := client.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !errors.As(err, &respErr) || respErr.ErrorCode != errorCodeTableAlreadyExists {
			return nil, errors.Wrapf(err, "create table %s", name)
		}
	}
	return &azTable{name: name, client: client}, nil
}

func (s *azTableStorage) Close() error {
	return nil
}

type azTable struct {
	name   string
	client *aztables.Client
}

func (t *azTable) Name() string {
	return t.name
}

// convertError maps service status codes onto the storage sentinels
func convertError(err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusPreconditionFailed:
		return storagecommon.ErrConflict
	case http.StatusNotFound:
		return storagecommon.ErrNotFound
	case http.StatusConflict:
		return storagecommon.ErrAlreadyExists
	}
	return err
}

func (t *azTable) Get(ctx context.Context, pk, rk string) (storagecommon.Row, error) {
	resp, err := t.client.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		return storagecommon.Row{}, convertError(err)
	}
	row, err := decodeEntity(resp.Value)
	if err != nil {
		return storagecommon.Row{}, err
	}
	row.ETag = string(resp.ETag)
	return row, nil
}

func (t *azTable) Insert(ctx context.Context, row storagecommon.Row) (string, error) {
	data, err := encodeEntity(row)
	if err != nil {
		return "", err
	}
	resp, err := t.client.AddEntity(ctx, data, nil)
	if err != nil {
		return "", convertError(err)
	}
	return string(resp.ETag), nil
}

func (t *azTable) Replace(ctx context.Context, row storagecommon.Row) (string, error) {
	data, err := encodeEntity(row)
	if err != nil {
		return "", err
	}
	etag := azcore.ETag(row.ETag)
	resp, err := t.client.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{
		IfMatch:    &etag,
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		return "", convertError(err)
	}
	return string(resp.ETag), nil
}

func (t *azTable) Delete(ctx context.Context, row storagecommon.Row) error {
	etag := azcore.ETag(row.ETag)
	_, err := t.client.DeleteEntity(ctx, row.PartitionKey, row.RowKey, &aztables.DeleteEntityOptions{
		IfMatch: &etag,
	})
	if err != nil {
		return convertError(err)
	}
	return nil
}

func (t *azTable) List(ctx context.Context, top int, continuation string) (storagecommon.Segment, error) {
	opts := &aztables.ListEntitiesOptions{}
	if top > 0 {
		top32 := int32(top)
		opts.Top = &top32
	}
	if continuation != "" {
		nextPK, nextRK, _ := strings.Cut(continuation, continuationSeparator)
		opts.NextPartitionKey = &nextPK
		opts.NextRowKey = &nextRK
	}

	var seg storagecommon.Segment
	pager := t.client.NewListEntitiesPager(opts)
	if !pager.More() {
		return seg, nil
	}
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return seg, convertError(err)
	}
	for _, data := range resp.Entities {
		row, err := decodeEntity(data)
		if err != nil {
			return seg, err
		}
		seg.Rows = append(seg.Rows, row)
	}
	if resp.NextPartitionKey != nil && *resp.NextPartitionKey != "" {
		nextRK := ""
		if resp.NextRowKey != nil {
			nextRK = *resp.NextRowKey
		}
		seg.Continuation = *resp.NextPartitionKey + continuationSeparator + nextRK
	}
	return seg, nil
}

func encodeEntity(row storagecommon.Row) ([]byte, error) {
	props := make(map[string]interface{}, len(row.Columns))
	for name, v := range row.Columns {
		switch val := v.(type) {
		case int64:
			props[name] = aztables.EDMInt64(val)
		case time.Time:
			props[name] = aztables.EDMDateTime(val.UTC())
		case []byte:
			props[name] = aztables.EDMBinary(val)
		default:
			props[name] = v
		}
	}
	entity := aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: row.PartitionKey,
			RowKey:       row.RowKey,
		},
		Properties: props,
	}
	data, err := json.Marshal(entity)
	return data, errors.Wrap(err, "encode entity")
}

func decodeEntity(data []byte) (storagecommon.Row, error) {
	var entity aztables.EDMEntity
	if err := json.Unmarshal(data, &entity); err != nil {
		return storagecommon.Row{}, errors.Wrap(err, "decode entity")
	}
	row := storagecommon.Row{
		PartitionKey: entity.PartitionKey,
		RowKey:       entity.RowKey,
		ETag:         entity.ETag,
		Timestamp:    time.Time(entity.Timestamp).UTC(),
		Columns:      make(map[string]interface{}, len(entity.Properties)),
	}
	for name, v := range entity.Properties {
		switch val := v.(type) {
		case aztables.EDMInt64:
			row.Columns[name] = int64(val)
		case aztables.EDMDateTime:
			row.Columns[name] = time.Time(val).UTC()
		case aztables.EDMBinary:
			row.Columns[name] = []byte(val)
		case aztables.EDMGUID:
			row.Columns[name] = string(val)
		case int:
			row.Columns[name] = int64(val)
		default:
			row.Columns[name] = v
		}
	}
	return row, nil
}
