package controllers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/blobstore"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/controller"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/status"
	"github.com/xiaonanln/saganet/game"
	"github.com/xiaonanln/saganet/game/models"
	"golang.org/x/sync/errgroup"
)

const (
	maxAccessKeysPerRequest = 100
	utilityParallelism      = 8
)

type getServerTime struct {
	env        *game.Env
	ServerTime time.Time
}

func (h *getServerTime) Outputs() []controller.Output {
	return []controller.Output{controller.Out("ServerTime", &h.ServerTime)}
}

func (h *getServerTime) Execute(c *controller.Context) (status.Status, error) {
	h.ServerTime = h.env.Now().UTC()
	return status.Ok, nil
}

type getServiceStatus struct {
	env          *game.Env
	BuildVersion string
}

func (h *getServiceStatus) Outputs() []controller.Output {
	return []controller.Output{controller.Out("BuildVersion", &h.BuildVersion)}
}

func (h *getServiceStatus) Execute(c *controller.Context) (status.Status, error) {
	gc := h.env.GlobalConfig.Current()
	h.BuildVersion = gc.BuildVersion

	servers, err := h.env.GameServers.ScanAll(c, 0)
	if err != nil {
		return status.Status{}, err
	}
	if models.AnyUpdating(servers) {
		return status.Updating, nil
	}
	if !gc.IsServiceOnline {
		return status.Offline, nil
	}
	return status.Ok, nil
}

type getJsonText struct {
	env      *game.Env
	Id       string
	JsonText string
}

func (h *getJsonText) Inputs() []controller.Input {
	return []controller.Input{controller.In("Id", &h.Id)}
}

func (h *getJsonText) Outputs() []controller.Output {
	return []controller.Output{controller.OutString("JsonText", &h.JsonText)}
}

func (h *getJsonText) Execute(c *controller.Context) (status.Status, error) {
	blob, err := h.env.JsonBlobs.Load(c, h.Id)
	if err != nil {
		return status.Status{}, err
	} else if blob == nil {
		return status.NotFound, nil
	}

	data, err := h.env.Blobs.Get(c, blob.BlobPath())
	if err == blobstore.ErrNotFound {
		return status.NotFound, nil
	} else if err != nil {
		return status.Status{}, err
	}
	h.JsonText = string(data)
	return status.Ok, nil
}

type generateAccessKeys struct {
	env   *game.Env
	Count int
	Email string
	Keys  []string
}

func (h *generateAccessKeys) Inputs() []controller.Input {
	return []controller.Input{
		controller.In("Count", &h.Count),
		controller.Opt("Email", &h.Email),
	}
}

func (h *generateAccessKeys) Outputs() []controller.Output {
	return []controller.Output{controller.Out("Keys", &h.Keys)}
}

func (h *generateAccessKeys) Execute(c *controller.Context) (status.Status, error) {
	if h.Count < 1 || h.Count > maxAccessKeysPerRequest {
		return status.Overcount, nil
	}
	keys, err := GenerateAccessKeys(c, h.env, h.Count, h.Email)
	if err != nil {
		return status.Status{}, err
	}
	h.Keys = keys
	return status.Ok, nil
}

// GenerateAccessKeys creates count unused access keys associated with email
func GenerateAccessKeys(ctx context.Context, env *game.Env, count int, email string) ([]string, error) {
	existing, err := env.AccessKeys.ScanAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(existing)+count)
	for _, key := range existing {
		taken[key.Id] = true
	}

	keys := make([]string, 0, count)
	for len(keys) < count {
		id := models.GenerateAccessKey(taken)
		taken[id] = true
		ok, err := env.AccessKeys.Insert(ctx, models.NewAccessKey(id, email, env.Now()), false)
		if err != nil {
			return nil, err
		} else if !ok {
			// generated concurrently by someone else
			continue
		}
		keys = append(keys, id)
	}
	return keys, nil
}

type setTalentPointsForAllPlayers struct {
	env            *game.Env
	TalentPoints   int
	PlayersUpdated int64
	OccFails       int64
}

func (h *setTalentPointsForAllPlayers) Inputs() []controller.Input {
	return []controller.Input{controller.In("TalentPoints", &h.TalentPoints)}
}

func (h *setTalentPointsForAllPlayers) Outputs() []controller.Output {
	return []controller.Output{
		controller.Out("PlayersUpdated", &h.PlayersUpdated),
		controller.Out("OccFails", &h.OccFails),
	}
}

// Execute updates players independently; a player that keeps conflicting is counted and skipped
func (h *setTalentPointsForAllPlayers) Execute(c *controller.Context) (status.Status, error) {
	if !h.env.GlobalConfig.Current().IsUtilityOperationsAllowed {
		return status.UtilityOperationsNotAllowed, nil
	}

	players, err := h.env.Players.ScanAll(c, 0)
	if err != nil {
		return status.Status{}, err
	}

	var updated, fails int64
	g, ctx := errgroup.WithContext(c)
	g.SetLimit(utilityParallelism)
	for _, player := range players {
		player := player
		g.Go(func() error {
			for attempt := 0; attempt <= consts.OCC_MAX_RETRIES; attempt++ {
				for i := range player.Characters {
					player.Characters[i].TalentPoints = h.TalentPoints
				}
				ok, err := h.env.Players.Replace(ctx, player)
				if err != nil {
					return err
				} else if ok {
					atomic.AddInt64(&updated, 1)
					return nil
				}

				reloaded, err := h.env.Players.Load(ctx, player.Id)
				if err != nil {
					return err
				} else if reloaded == nil {
					// deleted meanwhile
					return nil
				}
				player = reloaded
			}
			atomic.AddInt64(&fails, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return status.Status{}, errors.Wrap(err, "set talent points")
	}

	h.PlayersUpdated, h.OccFails = updated, fails
	gwlog.Infof("SetTalentPointsForAllPlayers: %d players updated, %d occ fails", updated, fails)
	return status.Ok, nil
}
