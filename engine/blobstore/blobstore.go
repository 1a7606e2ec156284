// Package blobstore serves the JSON documents referenced by JsonBlob entities
package blobstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/blobstore/backend/blobazure"
	"github.com/xiaonanln/saganet/engine/blobstore/backend/blobfilesystem"
	"github.com/xiaonanln/saganet/engine/blobstore/types"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/opmon"
)

// Store is a blob storage backend
type Store = blobtypes.BlobStore

// ErrNotFound is returned by Get when the blob does not exist
var ErrNotFound = blobtypes.ErrNotFound

// ContainerName returns the blob container of a deployment tier, e.g. saga-d-container
func ContainerName(tier config.Tier) string {
	return "saga-" + tier.Affix() + "-container"
}

// Open opens the blob backend selected by the config, using the container of the tier
func Open(ctx context.Context, cfg *config.BlobConfig, tier config.Tier) (Store, error) {
	container := ContainerName(tier)
	gwlog.Infof("Blob storage initializing, type %s, container %s", cfg.Type, container)

	var store Store
	var err error
	switch cfg.Type {
	case "filesystem":
		store, err = blobfilesystem.OpenDirectory(cfg.Directory, container)
	case "azblob":
		store, err = blobazure.OpenContainer(ctx, cfg.Url, container)
	default:
		err = errors.Errorf("blob type %s is not implemented", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return monitoredStore{store}, nil
}

type monitoredStore struct {
	Store
}

func (s monitoredStore) Get(ctx context.Context, name string) ([]byte, error) {
	op := opmon.StartOperation("blob.get")
	defer op.Finish(consts.STORAGE_OP_WARN_THRESHOLD)
	return s.Store.Get(ctx, name)
}

func (s monitoredStore) Put(ctx context.Context, name string, data []byte) error {
	op := opmon.StartOperation("blob.put")
	defer op.Finish(consts.STORAGE_OP_WARN_THRESHOLD)
	return s.Store.Put(ctx, name, data)
}
