package controllers

import (
	"sort"

	"github.com/xiaonanln/saganet/engine/controller"
	"github.com/xiaonanln/saganet/engine/envelope"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/passwordhash"
	"github.com/xiaonanln/saganet/engine/status"
	"github.com/xiaonanln/saganet/game"
	"github.com/xiaonanln/saganet/game/models"
)

type createPlayer struct {
	env       *game.Env
	PlayerId  string
	Password  string
	AccessKey string
}

func (h *createPlayer) Inputs() []controller.Input {
	return []controller.Input{
		controller.In(envelope.FieldPlayerId, &h.PlayerId),
		controller.In("Password", &h.Password),
		controller.Opt("AccessKey", &h.AccessKey),
	}
}

func (h *createPlayer) Execute(c *controller.Context) (status.Status, error) {
	existing, err := h.env.Players.Load(c, h.PlayerId)
	if err != nil {
		return status.Status{}, err
	} else if existing != nil {
		return status.PlayerAlreadyExists, nil
	}

	now := h.env.Now().UTC()
	var key *models.AccessKey
	if h.env.GlobalConfig.Current().IsAccessKeysEnabled {
		// players registered with a key use the key as their first password unless given one
		keyId := h.AccessKey
		if keyId == "" {
			keyId = h.Password
		}
		key, err = h.env.AccessKeys.Load(c, keyId)
		if err != nil {
			return status.Status{}, err
		}
		if key == nil || key.IsActivated {
			return status.InvalidAccessKey, nil
		}
	}

	hash, err := passwordhash.Hash(h.Password)
	if err != nil {
		return status.Status{}, err
	}
	player := h.env.Players.New()
	player.Id = h.PlayerId
	player.PasswordHash = hash
	player.CreationDate = now
	player.LastLoginDate = now
	player.SelectedCharacterIndex = -1
	player.AddResources(models.DefaultResources)
	if err := h.addDefaultCharacters(c, player); err != nil {
		return status.Status{}, err
	}

	ok, err := h.env.Players.Insert(c, player, true)
	if err != nil {
		return status.Status{}, err
	} else if !ok {
		return status.PlayerAlreadyExists, nil
	}

	if key != nil {
		// the key is spent only once the player exists
		key.Activate(now)
		if ok, err := h.env.AccessKeys.Replace(c, key); !ok {
			if _, derr := h.env.Players.Delete(c, player); derr != nil {
				gwlog.Errorf("CreatePlayer: remove %s after losing key %s: %v", player.Id, key.Id, derr)
			}
			return lost(c, err)
		}
	}
	return status.Ok, nil
}

// addDefaultCharacters gives the player one character per initially available class
func (h *createPlayer) addDefaultCharacters(c *controller.Context, player *models.Player) error {
	metas, err := h.env.ClassMetas.ScanAll(c, 0)
	if err != nil {
		return err
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Id < metas[j].Id
	})
	for _, meta := range metas {
		if meta.IsInitiallyAvailable {
			player.AddDefaultCharacter(meta)
		}
	}
	return nil
}

type authPlayer struct {
	env          *game.Env
	PlayerId     string
	Password     string
	SessionToken string
}

func (h *authPlayer) Inputs() []controller.Input {
	return []controller.Input{
		controller.In(envelope.FieldPlayerId, &h.PlayerId),
		controller.In("Password", &h.Password),
	}
}

func (h *authPlayer) Outputs() []controller.Output {
	return []controller.Output{
		controller.OutString(envelope.FieldSessionToken, &h.SessionToken),
	}
}

func (h *authPlayer) Execute(c *controller.Context) (status.Status, error) {
	player, err := h.env.Players.Load(c, h.PlayerId)
	if err != nil {
		return status.Status{}, err
	} else if player == nil {
		return status.PlayerNotFound, nil
	}
	if !passwordhash.Verify(h.Password, player.PasswordHash) {
		return status.WrongPassword, nil
	}

	player.LastLoginDate = h.env.Now().UTC()
	if ok, err := h.env.Players.Replace(c, player); !ok {
		return lost(c, err)
	}

	h.SessionToken, err = h.env.Gate.IssueToken(c, h.PlayerId)
	if err != nil {
		return status.Status{}, err
	}
	return status.Ok, nil
}

type getPlayer struct {
	env      *game.Env
	PlayerId string
	Player   *models.Player
}

func (h *getPlayer) Inputs() []controller.Input {
	return []controller.Input{controller.In(envelope.FieldPlayerId, &h.PlayerId)}
}

func (h *getPlayer) Outputs() []controller.Output {
	return []controller.Output{controller.Out("Player", &h.Player)}
}

func (h *getPlayer) Execute(c *controller.Context) (st status.Status, err error) {
	h.Player, err = h.env.Players.Load(c, h.PlayerId)
	if err != nil {
		return status.Status{}, err
	} else if h.Player == nil {
		return status.PlayerNotFound, nil
	}
	return status.Ok, nil
}

type addResources struct {
	env       *game.Env
	PlayerId  string
	Resources []int
}

func (h *addResources) Inputs() []controller.Input {
	return []controller.Input{
		controller.In(envelope.FieldPlayerId, &h.PlayerId),
		controller.In("Resources", &h.Resources),
	}
}

func (h *addResources) Execute(c *controller.Context) (status.Status, error) {
	player, err := h.env.Players.Load(c, h.PlayerId)
	if err != nil {
		return status.Status{}, err
	} else if player == nil {
		return status.PlayerNotFound, nil
	}

	player.AddResources(h.Resources)
	if ok, err := h.env.Players.Replace(c, player); !ok {
		return lost(c, err)
	}
	return status.Ok, nil
}

type spendResources struct {
	env       *game.Env
	PlayerId  string
	Resources []int
}

func (h *spendResources) Inputs() []controller.Input {
	return []controller.Input{
		controller.In(envelope.FieldPlayerId, &h.PlayerId),
		controller.In("Resources", &h.Resources),
	}
}

func (h *spendResources) Execute(c *controller.Context) (status.Status, error) {
	player, err := h.env.Players.Load(c, h.PlayerId)
	if err != nil {
		return status.Status{}, err
	} else if player == nil {
		return status.PlayerNotFound, nil
	}

	if !player.SpendResources(h.Resources) {
		return status.NotEnoughResources, nil
	}
	if ok, err := h.env.Players.Replace(c, player); !ok {
		return lost(c, err)
	}
	return status.Ok, nil
}

type selectCharacter struct {
	env            *game.Env
	PlayerId       string
	CharacterIndex int
}

func (h *selectCharacter) Inputs() []controller.Input {
	return []controller.Input{
		controller.In(envelope.FieldPlayerId, &h.PlayerId),
		controller.In("CharacterIndex", &h.CharacterIndex),
	}
}

func (h *selectCharacter) Execute(c *controller.Context) (status.Status, error) {
	player, err := h.env.Players.Load(c, h.PlayerId)
	if err != nil {
		return status.Status{}, err
	} else if player == nil {
		return status.PlayerNotFound, nil
	}

	if h.CharacterIndex < 0 || h.CharacterIndex >= len(player.Characters) {
		return status.CharacterNotFound, nil
	}
	player.SelectedCharacterIndex = h.CharacterIndex
	if ok, err := h.env.Players.Replace(c, player); !ok {
		return lost(c, err)
	}
	return status.Ok, nil
}
