package kvdb

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/kvdb/backend/kvdbmemory"
	"github.com/xiaonanln/saganet/engine/kvdb/backend/kvdbredis"
	"github.com/xiaonanln/saganet/engine/kvdb/types"
	"github.com/xiaonanln/saganet/engine/opmon"
)

// Engine is the expiring key-value cache shared by the whole process
type Engine = kvdbtypes.KVDBEngine

// Open opens the KVDB backend selected by the config
func Open(kvdbCfg *config.KVDBConfig) (Engine, error) {
	gwlog.Infof("KVDB initializing, config:\n%s", config.DumpPretty(kvdbCfg))

	var engine Engine
	switch kvdbCfg.Type {
	case "memory":
		engine = kvdbmemory.OpenMemoryKVDB()
	case "redis":
		dbindex, err := strconv.Atoi(kvdbCfg.DB)
		if err != nil {
			return nil, errors.Wrap(err, "redis db must be integer")
		}
		engine, err = kvdbredis.OpenRedisKVDB(kvdbCfg.Url, dbindex)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("KVDB type %s is not implemented", kvdbCfg.Type)
	}
	return Monitored(engine), nil
}

// Monitored wraps an engine so every operation is timed by opmon
func Monitored(engine Engine) Engine {
	if _, ok := engine.(monitoredEngine); ok {
		return engine
	}
	return monitoredEngine{engine}
}

type monitoredEngine struct {
	Engine
}

func (e monitoredEngine) Get(ctx context.Context, key string) (string, bool, error) {
	op := opmon.StartOperation("kvdb.get")
	defer op.Finish(consts.KVDB_OP_WARN_THRESHOLD)
	val, ok, err := e.Engine.Get(ctx, key)
	e.checkError("get", err)
	return val, ok, err
}

func (e monitoredEngine) SetEx(ctx context.Context, key string, val string, ttl time.Duration) error {
	op := opmon.StartOperation("kvdb.setex")
	defer op.Finish(consts.KVDB_OP_WARN_THRESHOLD)
	err := e.Engine.SetEx(ctx, key, val, ttl)
	e.checkError("setex", err)
	return err
}

func (e monitoredEngine) Del(ctx context.Context, key string) error {
	op := opmon.StartOperation("kvdb.del")
	defer op.Finish(consts.KVDB_OP_WARN_THRESHOLD)
	err := e.Engine.Del(ctx, key)
	e.checkError("del", err)
	return err
}

func (e monitoredEngine) checkError(opname string, err error) {
	if err != nil && e.Engine.IsConnectionError(err) {
		gwlog.Errorf("kvdb: %s failed on connection: %s", opname, err)
	}
}
