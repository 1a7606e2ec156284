// Package controllers implements the request handlers of the game backend.
//
// Handlers are registered by name with Register. Every request runs on a fresh handler value;
// a handler that loses a write race returns c.Retry() and is run again from scratch.
package controllers

import (
	"github.com/xiaonanln/saganet/engine/controller"
	"github.com/xiaonanln/saganet/engine/status"
	"github.com/xiaonanln/saganet/game"
)

// Register adds every handler to the registry
func Register(reg *controller.Registry, env *game.Env) {
	// players
	reg.Register("CreatePlayer", controller.Public, func() controller.Handler { return &createPlayer{env: env} })
	reg.Register("AuthPlayer", controller.Public, func() controller.Handler { return &authPlayer{env: env} })
	reg.Register("CheckAuth", controller.Player, func() controller.Handler { return checkAuth{} })
	reg.Register("CheckServerAuth", controller.Server, func() controller.Handler { return checkAuth{} })
	reg.Register("GetPlayer", controller.Player, func() controller.Handler { return &getPlayer{env: env} })
	reg.Register("AddResources", controller.Server, func() controller.Handler { return &addResources{env: env} })
	reg.Register("SpendResources", controller.Player, func() controller.Handler { return &spendResources{env: env} })
	reg.Register("SelectCharacter", controller.Player, func() controller.Handler { return &selectCharacter{env: env} })

	// service
	reg.Register("GetServerTime", controller.Public, func() controller.Handler { return &getServerTime{env: env} })
	reg.Register("GetServiceStatus", controller.Public, func() controller.Handler { return &getServiceStatus{env: env} })
	reg.Register("GetJsonText", controller.Public, func() controller.Handler { return &getJsonText{env: env} })
	reg.Register("GenerateAccessKeys", controller.Server, func() controller.Handler { return &generateAccessKeys{env: env} })
	reg.Register("SetTalentPointsForAllPlayers", controller.Server, func() controller.Handler { return &setTalentPointsForAllPlayers{env: env} })

	// master
	reg.Register("RegisterGameServer", controller.Server, func() controller.Handler { return &registerGameServer{env: env} })
	reg.Register("RequestInstance", controller.Player, func() controller.Handler { return &requestInstance{env: env} })
	reg.Register("OnInstanceReady", controller.Server, func() controller.Handler { return &onInstanceReady{env: env} })
	reg.Register("OnPlayerDisconnected", controller.Server, func() controller.Handler { return &onPlayerDisconnected{env: env} })
	reg.Register("SetIsInstanceOpen", controller.Server, func() controller.Handler { return &setIsInstanceOpen{env: env} })
	reg.Register("UpdateBuild", controller.Server, func() controller.Handler { return &updateBuild{env: env} })
	reg.Register("UpdateComplete", controller.Server, func() controller.Handler { return &updateComplete{env: env} })
	reg.Register("DisableArena", controller.Server, func() controller.Handler { return &disableArena{env: env} })
}

// lost handles a guarded write that did not succeed: errors propagate, a lost race retries the request
func lost(c *controller.Context, err error) (status.Status, error) {
	if err != nil {
		return status.Status{}, err
	}
	return c.Retry()
}

// checkAuth succeeds for every request the dispatcher authorized
type checkAuth struct{}

func (checkAuth) Execute(c *controller.Context) (status.Status, error) {
	return status.Ok, nil
}
