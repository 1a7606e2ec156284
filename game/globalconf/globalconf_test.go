package globalconf

import (
	"context"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/storage"
	"github.com/xiaonanln/saganet/engine/storage/backend/memory"
	"github.com/xiaonanln/saganet/engine/storage/storage_common"
	"github.com/xiaonanln/saganet/game/models"
)

func newStore() *Store {
	svc := storagecommon.NewService(entitystoragememory.OpenMemory())
	return storage.NewStore[models.GlobalConfiguration](svc, config.TestTier)
}

func TestDefaultsBeforeStart(t *testing.T) {
	w := NewWatcher(newStore(), time.Minute)
	gc := w.Current()
	assert.T(t, gc.IsServiceOnline)
	assert.T(t, !gc.IsUtilityOperationsAllowed)
	assert.T(t, !gc.IsAccessKeysEnabled)
	assert.Equal(t, "0.0.0", gc.BuildVersion)
}

func TestStartCreatesSingleton(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	w := NewWatcher(store, 0)
	assert.Equal(t, nil, w.Start(ctx))
	defer w.Stop()

	stored, err := store.Load(ctx, "TestGlobalConfiguration")
	assert.Equal(t, nil, err)
	assert.T(t, stored != nil)
	assert.Equal(t, "TestGlobalConfiguration", w.Current().Id)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	w := NewWatcher(store, 0)
	assert.Equal(t, nil, w.Start(ctx))

	// another process switches the service offline
	gc, _ := store.LoadSingleton(ctx)
	gc.IsServiceOnline = false
	ok, err := store.Replace(ctx, gc)
	assert.Equal(t, nil, err)
	assert.T(t, ok)

	assert.T(t, w.Current().IsServiceOnline)
	assert.Equal(t, nil, w.Refresh(ctx))
	assert.T(t, !w.Current().IsServiceOnline)
}

func TestPolling(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	w := NewWatcher(store, time.Second)
	assert.Equal(t, nil, w.Start(ctx))
	defer w.Stop()

	gc, _ := store.LoadSingleton(ctx)
	gc.BuildVersion = "1.2.3"
	store.Replace(ctx, gc)

	deadline := time.Now().Add(5 * time.Second)
	for w.Current().BuildVersion != "1.2.3" && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	assert.Equal(t, "1.2.3", w.Current().BuildVersion)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	w := NewWatcher(store, 0)
	assert.Equal(t, nil, w.Update(ctx, func(gc *models.GlobalConfiguration) {
		gc.IsUtilityOperationsAllowed = true
	}))
	assert.T(t, w.Current().IsUtilityOperationsAllowed)

	stored, _ := store.LoadSingleton(ctx)
	assert.T(t, stored.IsUtilityOperationsAllowed)
}
