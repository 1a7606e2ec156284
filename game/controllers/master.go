package controllers

import (
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/controller"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/status"
	"github.com/xiaonanln/saganet/game"
	"github.com/xiaonanln/saganet/game/models"
)

// Master handlers hand out arena instances to players and track the dedicated game servers
// running them. Game servers poll the instance request queue and report back with OnInstanceReady.

type registerGameServer struct {
	env *game.Env
	Ip  string
}

func (h *registerGameServer) Inputs() []controller.Input {
	return []controller.Input{controller.In("Ip", &h.Ip)}
}

func (h *registerGameServer) Execute(c *controller.Context) (status.Status, error) {
	server := h.env.GameServers.New()
	server.Id = h.Ip
	ok, err := h.env.GameServers.Insert(c, server, false)
	if err != nil {
		return status.Status{}, err
	}
	if !ok {
		gwlog.Infof("RegisterGameServer: %s already registered", h.Ip)
	}
	return status.Ok, nil
}

type requestInstance struct {
	env         *game.Env
	ArenaMetaId string
	Ip          string
	Port        string
}

func (h *requestInstance) Inputs() []controller.Input {
	return []controller.Input{controller.In("ArenaMetaId", &h.ArenaMetaId)}
}

func (h *requestInstance) Outputs() []controller.Output {
	return []controller.Output{
		controller.OutString("Ip", &h.Ip),
		controller.OutString("Port", &h.Port),
	}
}

func (h *requestInstance) Execute(c *controller.Context) (status.Status, error) {
	meta, err := h.env.ArenaMetas.Load(c, h.ArenaMetaId)
	if err != nil {
		return status.Status{}, err
	} else if meta == nil {
		return status.MetaNotFound, nil
	}
	if !meta.IsAvailable {
		return status.ArenaUnavailable, nil
	}

	servers, err := h.env.GameServers.ScanAll(c, 0)
	if err != nil {
		return status.Status{}, err
	}
	host, idx := models.FindInstanceByArena(servers, h.ArenaMetaId, true, true)
	if host == nil {
		return h.requestNewInstance(c)
	}

	inst := &host.ActiveInstances[idx]
	inst.FreeSlots--
	if ok, err := h.env.GameServers.Replace(c, host); !ok {
		return lost(c, err)
	}
	h.Ip = host.Ip()
	h.Port = inst.Port
	return status.Ok, nil
}

// requestNewInstance queues the start of an instance unless one is already on its way
func (h *requestInstance) requestNewInstance(c *controller.Context) (status.Status, error) {
	now := h.env.Now().UTC()
	pending, err := h.env.RequestedInstances.Load(c, h.ArenaMetaId)
	if err != nil {
		return status.Status{}, err
	}
	if pending != nil {
		if !pending.IsStale(now, consts.INSTANCE_REQUEST_TIMEOUT) {
			return status.Wait, nil
		}
		gwlog.Warnf("RequestInstance: request of %s timed out after %s, requesting again", h.ArenaMetaId, now.Sub(pending.RequestedDate))
		if ok, err := h.env.RequestedInstances.Delete(c, pending); !ok {
			return lost(c, err)
		}
	}

	req := h.env.RequestedInstances.New()
	req.Id = h.ArenaMetaId
	req.RequestedDate = now
	ok, err := h.env.RequestedInstances.Insert(c, req, false)
	if err != nil {
		return status.Status{}, err
	}
	if ok {
		h.env.Bus.QueueInstanceRequest(h.ArenaMetaId)
	}
	return status.Wait, nil
}

type onInstanceReady struct {
	env         *game.Env
	Ip          string
	Port        string
	ArenaMetaId string
}

func (h *onInstanceReady) Inputs() []controller.Input {
	return []controller.Input{
		controller.In("Ip", &h.Ip),
		controller.In("Port", &h.Port),
		controller.In("ArenaMetaId", &h.ArenaMetaId),
	}
}

func (h *onInstanceReady) Execute(c *controller.Context) (status.Status, error) {
	req, err := h.env.RequestedInstances.Load(c, h.ArenaMetaId)
	if err != nil {
		return status.Status{}, err
	} else if req == nil {
		return status.RequestedInstanceNotFound, nil
	}
	meta, err := h.env.ArenaMetas.Load(c, h.ArenaMetaId)
	if err != nil {
		return status.Status{}, err
	} else if meta == nil {
		return status.MetaNotFound, nil
	}
	server, err := h.env.GameServers.Load(c, h.Ip)
	if err != nil {
		return status.Status{}, err
	} else if server == nil {
		return status.NotFound, nil
	}

	server.ActiveInstances = append(server.ActiveInstances, models.NewArenaInstance(meta, h.Port, h.env.Now()))
	if ok, err := h.env.GameServers.Replace(c, server); !ok {
		return lost(c, err)
	}

	// the instance is registered; a request record removed by someone else is of no concern
	ok, err := h.env.RequestedInstances.Delete(c, req)
	if err != nil {
		return status.Status{}, err
	} else if !ok {
		gwlog.Warnf("OnInstanceReady: request of %s changed meanwhile", h.ArenaMetaId)
	}
	return status.Ok, nil
}

// instanceAddress names an instance by its server ip and port
type instanceAddress struct {
	Ip   string
	Port string
}

func (a *instanceAddress) inputs() []controller.Input {
	return []controller.Input{
		controller.In("Ip", &a.Ip),
		controller.In("Port", &a.Port),
	}
}

// load returns the host server and the index of the instance, or nil
func (a *instanceAddress) load(c *controller.Context, env *game.Env) (*models.GameServer, int, error) {
	server, err := env.GameServers.Load(c, a.Ip)
	if err != nil || server == nil {
		return nil, -1, err
	}
	idx := server.InstanceByPort(a.Port)
	if idx < 0 {
		return nil, -1, nil
	}
	return server, idx, nil
}

type onPlayerDisconnected struct {
	env *game.Env
	instanceAddress
}

func (h *onPlayerDisconnected) Inputs() []controller.Input {
	return h.inputs()
}

func (h *onPlayerDisconnected) Execute(c *controller.Context) (status.Status, error) {
	server, idx, err := h.load(c, h.env)
	if err != nil {
		return status.Status{}, err
	} else if server == nil {
		return status.NotFound, nil
	}

	server.ActiveInstances[idx].FreeSlots++
	if ok, err := h.env.GameServers.Replace(c, server); !ok {
		return lost(c, err)
	}
	return status.Ok, nil
}

type setIsInstanceOpen struct {
	env *game.Env
	instanceAddress
	IsOpen bool
}

func (h *setIsInstanceOpen) Inputs() []controller.Input {
	return append(h.inputs(), controller.In("IsOpen", &h.IsOpen))
}

func (h *setIsInstanceOpen) Execute(c *controller.Context) (status.Status, error) {
	server, idx, err := h.load(c, h.env)
	if err != nil {
		return status.Status{}, err
	} else if server == nil {
		return status.NotFound, nil
	}

	server.ActiveInstances[idx].IsOpen = h.IsOpen
	if ok, err := h.env.GameServers.Replace(c, server); !ok {
		return lost(c, err)
	}
	return status.Ok, nil
}

type updateBuild struct {
	env      *game.Env
	BuildUri string
}

func (h *updateBuild) Inputs() []controller.Input {
	return []controller.Input{controller.In("BuildUri", &h.BuildUri)}
}

// Execute drops every pending request and running instance, then tells the servers to install the build
func (h *updateBuild) Execute(c *controller.Context) (status.Status, error) {
	requests, err := h.env.RequestedInstances.ScanAll(c, 0)
	if err != nil {
		return status.Status{}, err
	}
	for _, req := range requests {
		if ok, err := h.env.RequestedInstances.Delete(c, req); !ok {
			return lost(c, err)
		}
	}

	servers, err := h.env.GameServers.ScanAll(c, 0)
	if err != nil {
		return status.Status{}, err
	}
	for _, server := range servers {
		server.ActiveInstances = []models.ArenaInstance{}
		server.IsUpdating = true
		if ok, err := h.env.GameServers.Replace(c, server); !ok {
			return lost(c, err)
		}
	}

	h.env.Bus.PublishUpdateBuild(h.BuildUri)
	gwlog.Infof("UpdateBuild: %d servers updating to %s", len(servers), h.BuildUri)
	return status.Ok, nil
}

type updateComplete struct {
	env *game.Env
	Ip  string
}

func (h *updateComplete) Inputs() []controller.Input {
	return []controller.Input{controller.In("Ip", &h.Ip)}
}

func (h *updateComplete) Execute(c *controller.Context) (status.Status, error) {
	server, err := h.env.GameServers.Load(c, h.Ip)
	if err != nil {
		return status.Status{}, err
	} else if server == nil {
		return status.NotFound, nil
	}

	server.IsUpdating = false
	if ok, err := h.env.GameServers.Replace(c, server); !ok {
		return lost(c, err)
	}
	return status.Ok, nil
}

// disableArena is used by game servers whose build lacks the arena's map
type disableArena struct {
	env         *game.Env
	ArenaMetaId string
}

func (h *disableArena) Inputs() []controller.Input {
	return []controller.Input{controller.In("ArenaMetaId", &h.ArenaMetaId)}
}

func (h *disableArena) Execute(c *controller.Context) (status.Status, error) {
	meta, err := h.env.ArenaMetas.Load(c, h.ArenaMetaId)
	if err != nil {
		return status.Status{}, err
	} else if meta == nil {
		return status.MetaNotFound, nil
	}

	meta.IsAvailable = false
	if ok, err := h.env.ArenaMetas.Replace(c, meta); !ok {
		return lost(c, err)
	}
	return status.Ok, nil
}
