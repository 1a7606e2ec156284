package blobazure

import (
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/blobstore/types"
)

type azureBlobStore struct {
	client    *azblob.Client
	container string
}

// OpenContainer opens an Azure storage blob container, creating it if it does not exist
func OpenContainer(ctx context.Context, connectionString string, container string) (blobtypes.BlobStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "blob client")
	}
	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, errors.Wrapf(err, "create container %s", container)
	}
	return &azureBlobStore{client: client, container: container}, nil
}

func (bs *azureBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	resp, err := bs.client.DownloadStream(ctx, bs.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, blobtypes.ErrNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "download %s", name)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (bs *azureBlobStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := bs.client.UploadBuffer(ctx, bs.container, name, data, nil)
	return errors.Wrapf(err, "upload %s", name)
}

func (bs *azureBlobStore) Close() error {
	return nil
}
