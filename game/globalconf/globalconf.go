// Package globalconf keeps a polled snapshot of the tier's GlobalConfiguration.
package globalconf

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/gwutils"
	"github.com/xiaonanln/saganet/engine/storage"
	"github.com/xiaonanln/saganet/game/models"
)

// Store persists the GlobalConfiguration singleton
type Store = storage.Store[models.GlobalConfiguration, *models.GlobalConfiguration]

// Watcher reloads the global configuration on a fixed interval.
//
// Requests read the latest snapshot through Current and never block on the store.
type Watcher struct {
	store    *Store
	interval time.Duration
	current  atomic.Pointer[models.GlobalConfiguration]
	cron     *cron.Cron
}

// NewWatcher creates a watcher polling store every interval. Until the first load Current returns the defaults.
func NewWatcher(store *Store, interval time.Duration) *Watcher {
	w := &Watcher{
		store:    store,
		interval: interval,
	}
	w.current.Store(store.New())
	return w
}

// Start loads the configuration, creating it on first use, and starts polling
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.Refresh(ctx); err != nil {
		return err
	}
	if w.interval <= 0 {
		return nil
	}

	w.cron = cron.New()
	if _, err := w.cron.AddFunc("@every "+w.interval.String(), w.poll); err != nil {
		return errors.Wrap(err, "schedule global configuration refresh")
	}
	w.cron.Start()
	gwlog.Infof("globalconf: refreshing every %s", w.interval)
	return nil
}

func (w *Watcher) poll() {
	gwutils.RunPanicless(func() {
		ctx, cancel := context.WithTimeout(context.Background(), consts.GLOBAL_CONFIG_REFRESH_TIMEOUT)
		defer cancel()
		if err := w.Refresh(ctx); err != nil {
			gwlog.Errorf("globalconf: refresh failed: %+v", err)
		}
	})
}

// Refresh reloads the configuration now
func (w *Watcher) Refresh(ctx context.Context) error {
	gc, err := w.store.LoadSingleton(ctx)
	if err != nil {
		return errors.Wrap(err, "load global configuration")
	}
	old := w.current.Swap(gc)
	if old == nil || summary(old) != summary(gc) {
		gwlog.Infof("globalconf: %s", summary(gc))
	}
	return nil
}

func summary(gc *models.GlobalConfiguration) string {
	return fmt.Sprintf("online=%v utility=%v accesskeys=%v build=%s",
		gc.IsServiceOnline, gc.IsUtilityOperationsAllowed, gc.IsAccessKeysEnabled, gc.BuildVersion)
}

// Current returns the latest snapshot. Callers must not modify it.
func (w *Watcher) Current() *models.GlobalConfiguration {
	return w.current.Load()
}

// Update applies modify to the stored configuration, retrying on write conflicts, and refreshes the snapshot
func (w *Watcher) Update(ctx context.Context, modify func(gc *models.GlobalConfiguration)) error {
	for attempt := 0; attempt <= consts.OCC_MAX_RETRIES; attempt++ {
		gc, err := w.store.LoadSingleton(ctx)
		if err != nil {
			return errors.Wrap(err, "load global configuration")
		}
		modify(gc)
		ok, err := w.store.Replace(ctx, gc)
		if err != nil {
			return errors.Wrap(err, "save global configuration")
		}
		if ok {
			w.current.Store(gc)
			return nil
		}
	}
	return errors.Errorf("global configuration: gave up after %d write conflicts", consts.OCC_MAX_RETRIES+1)
}

// Stop stops polling and waits for a running refresh to finish
func (w *Watcher) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}
