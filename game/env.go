// Package game wires the backends of one deployment tier into an Env shared by all game handlers.
package game

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/auth"
	"github.com/xiaonanln/saganet/engine/blobstore"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/kvdb"
	"github.com/xiaonanln/saganet/engine/msgbus"
	"github.com/xiaonanln/saganet/engine/storage"
	"github.com/xiaonanln/saganet/engine/storage/storage_common"
	"github.com/xiaonanln/saganet/game/globalconf"
	"github.com/xiaonanln/saganet/game/models"
)

// Env holds everything a handler may touch
type Env struct {
	Config *config.Config
	Tier   config.Tier

	Storage            *storagecommon.Service
	Players            *storage.Store[models.Player, *models.Player]
	GameServers        *storage.Store[models.GameServer, *models.GameServer]
	ArenaMetas         *storage.Store[models.ArenaMeta, *models.ArenaMeta]
	ClassMetas         *storage.Store[models.ClassMeta, *models.ClassMeta]
	RequestedInstances *storage.Store[models.RequestedInstance, *models.RequestedInstance]
	AccessKeys         *storage.Store[models.AccessKey, *models.AccessKey]
	JsonBlobs          *storage.Store[models.JsonBlob, *models.JsonBlob]
	GlobalConfigs      *globalconf.Store

	Sessions     kvdb.Engine
	Gate         *auth.Gate
	Bus          *msgbus.Bus
	Blobs        blobstore.Store
	GlobalConfig *globalconf.Watcher

	// Now is the clock of all handlers
	Now func() time.Time
}

// NewEnv assembles an Env from opened backends
func NewEnv(cfg *config.Config, svc *storagecommon.Service, sessions kvdb.Engine, bus *msgbus.Bus, blobs blobstore.Store) *Env {
	tier := cfg.Server.DeploymentTier
	env := &Env{
		Config: cfg,
		Tier:   tier,

		Storage:            svc,
		Players:            storage.NewStore[models.Player](svc, tier),
		GameServers:        storage.NewStore[models.GameServer](svc, tier),
		ArenaMetas:         storage.NewStore[models.ArenaMeta](svc, tier),
		ClassMetas:         storage.NewStore[models.ClassMeta](svc, tier),
		RequestedInstances: storage.NewStore[models.RequestedInstance](svc, tier),
		AccessKeys:         storage.NewStore[models.AccessKey](svc, tier),
		JsonBlobs:          storage.NewStore[models.JsonBlob](svc, tier),
		GlobalConfigs:      storage.NewStore[models.GlobalConfiguration](svc, tier),

		Sessions: sessions,
		Gate:     auth.NewGate(cfg.Server.IsAuthEnabled, cfg.Server.ServerAuthKey, sessions),
		Bus:      bus,
		Blobs:    blobs,
		Now:      time.Now,
	}
	env.GlobalConfig = globalconf.NewWatcher(env.GlobalConfigs, cfg.Server.GlobalConfigRefreshInterval)
	return env
}

// Open opens every backend named by the config
func Open(ctx context.Context, cfg *config.Config) (env *Env, err error) {
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	svc, err := storage.Open(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	closers = append(closers, svc.Close)

	sessions, err := kvdb.Open(&cfg.KVDB)
	if err != nil {
		return nil, errors.Wrap(err, "open kvdb")
	}
	closers = append(closers, sessions.Close)

	bus, err := msgbus.Open(&cfg.MsgBus, cfg.Server.DeploymentTier, cfg.Server.IsTestEnvironment)
	if err != nil {
		return nil, errors.Wrap(err, "open msgbus")
	}
	closers = append(closers, bus.Close)

	blobs, err := blobstore.Open(ctx, &cfg.Blob, cfg.Server.DeploymentTier)
	if err != nil {
		return nil, errors.Wrap(err, "open blob storage")
	}

	return NewEnv(cfg, svc, sessions, bus, blobs), nil
}

// Start loads the global configuration and starts refreshing it
func (env *Env) Start(ctx context.Context) error {
	return env.GlobalConfig.Start(ctx)
}

// Close stops the refresher, flushes pending messages and closes all backends
func (env *Env) Close() error {
	env.GlobalConfig.Stop()

	var firstErr error
	for _, closer := range []struct {
		name  string
		close func() error
	}{
		{"msgbus", env.Bus.Close},
		{"blob storage", env.Blobs.Close},
		{"kvdb", env.Sessions.Close},
		{"storage", env.Storage.Close},
	} {
		if err := closer.close(); err != nil {
			gwlog.Errorf("close %s failed: %s", closer.name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
