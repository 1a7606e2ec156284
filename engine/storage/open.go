package storage

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/storage/backend/aztables"
	"github.com/xiaonanln/saganet/engine/storage/backend/memory"
	"github.com/xiaonanln/saganet/engine/storage/backend/mongodb"
	"github.com/xiaonanln/saganet/engine/storage/backend/sqlite"
	"github.com/xiaonanln/saganet/engine/storage/storage_common"
)

// Open connects the table storage backend selected by the config
func Open(storageCfg *config.StorageConfig) (*storagecommon.Service, error) {
	gwlog.Infof("Storage initializing, config:\n%s", config.DumpPretty(storageCfg))

	var backend storagecommon.TableStorage
	var err error
	switch storageCfg.Type {
	case "memory":
		backend = entitystoragememory.OpenMemory()
	case "sqlite":
		backend, err = entitystoragesqlite.OpenSQLite(storageCfg.Directory, storageCfg.Url)
	case "aztables":
		backend, err = entitystorageaztables.OpenAzureTables(storageCfg.Url)
	case "mongodb":
		backend, err = entitystoragemongodb.OpenMongoDB(storageCfg.Url, storageCfg.DB)
	default:
		return nil, errors.Errorf("storage type %s is not implemented", storageCfg.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s storage", storageCfg.Type)
	}
	return storagecommon.NewService(backend), nil
}
