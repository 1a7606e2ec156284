package models

import (
	"sort"
	"time"

	"github.com/xiaonanln/saganet/engine/storage"
)

// GameServer is a dedicated server machine hosting arena instances. Its id is its ip.
type GameServer struct {
	storage.Model

	IsUpdating      bool
	ActiveInstances []ArenaInstance
}

func (*GameServer) BaseTableName() string {
	return "GameServers"
}

func (s *GameServer) SetDefaults() {
	s.ActiveInstances = []ArenaInstance{}
}

// Ip of the server
func (s *GameServer) Ip() string {
	return s.Id
}

// InstanceByPort returns the index of the instance listening on port, or -1
func (s *GameServer) InstanceByPort(port string) int {
	for i := range s.ActiveInstances {
		if s.ActiveInstances[i].Port == port {
			return i
		}
	}
	return -1
}

func (s *GameServer) oldestStart() time.Time {
	var oldest time.Time
	for i, inst := range s.ActiveInstances {
		if i == 0 || inst.StartedDate.Before(oldest) {
			oldest = inst.StartedDate
		}
	}
	return oldest
}

// ArenaInstance is a running arena match on a game server
type ArenaInstance struct {
	MetaDescribed
	Port        string
	FreeSlots   int
	StartedDate time.Time
	IsOpen      bool
}

// NewArenaInstance creates an open instance of the arena with all player slots free
func NewArenaInstance(meta *ArenaMeta, port string, now time.Time) ArenaInstance {
	return ArenaInstance{
		MetaDescribed: NewMetaDescribed(meta.Id),
		Port:          port,
		FreeSlots:     meta.MaxPlayers,
		StartedDate:   now.UTC(),
		IsOpen:        true,
	}
}

// FindInstanceByArena looks for an instance of the arena, optionally with free slots and open.
//
// Servers are tried in the order their oldest instance started so instances fill up in the order
// they were requested. Returns the host server and the instance index, or nil.
func FindInstanceByArena(servers []*GameServer, arenaMetaId string, free bool, open bool) (*GameServer, int) {
	match := func(inst *ArenaInstance) bool {
		return inst.MetaId == arenaMetaId && (!free || inst.FreeSlots > 0) && (!open || inst.IsOpen)
	}

	var hosts []*GameServer
	for _, s := range servers {
		for i := range s.ActiveInstances {
			if match(&s.ActiveInstances[i]) {
				hosts = append(hosts, s)
				break
			}
		}
	}
	if len(hosts) == 0 {
		return nil, -1
	}

	sort.SliceStable(hosts, func(i, j int) bool {
		return hosts[i].oldestStart().Before(hosts[j].oldestStart())
	})
	host := hosts[0]
	for i := range host.ActiveInstances {
		if match(&host.ActiveInstances[i]) {
			return host, i
		}
	}
	return nil, -1
}

// AnyUpdating reports whether any of the servers is installing a new build
func AnyUpdating(servers []*GameServer) bool {
	for _, s := range servers {
		if s.IsUpdating {
			return true
		}
	}
	return false
}

// RequestedInstance is an arena instance waiting to be started by a game server.
// Its id is the arena meta id, so an arena is requested at most once at a time.
type RequestedInstance struct {
	storage.Model

	RequestedDate time.Time
}

func (*RequestedInstance) BaseTableName() string {
	return "RequestedInstances"
}

func (r *RequestedInstance) SetDefaults() {
	r.RequestedDate = time.Now().UTC()
}

// ArenaMetaId of the requested arena
func (r *RequestedInstance) ArenaMetaId() string {
	return r.Id
}

// IsStale reports whether the request has been waited on longer than timeout
func (r *RequestedInstance) IsStale(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.RequestedDate) > timeout
}

// ArenaMeta describes an arena map and mode
type ArenaMeta struct {
	storage.Model

	DisplayName  string
	Map          string
	Mode         string
	Icon         string
	MaxPlayers   int
	EndCondition string
	EndKillCount *int
	// EndTimeOut is a duration in hh:mm:ss form
	EndTimeOut   *string
	EndFlagCount *int
	IsAvailable  bool
}

func (*ArenaMeta) BaseTableName() string {
	return "ArenaMetas"
}

func (m *ArenaMeta) SetDefaults() {
	m.IsAvailable = true
}
