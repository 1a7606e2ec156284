package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/gorilla/mux"
	"github.com/xiaonanln/saganet/engine/blobstore"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/controller"
	"github.com/xiaonanln/saganet/engine/envelope"
	"github.com/xiaonanln/saganet/engine/kvdb/backend/kvdbmemory"
	"github.com/xiaonanln/saganet/engine/msgbus"
	"github.com/xiaonanln/saganet/engine/storage/backend/memory"
	"github.com/xiaonanln/saganet/engine/storage/storage_common"
	"github.com/xiaonanln/saganet/game"
	"github.com/xiaonanln/saganet/game/models"
)

const testServerKey = "server-secret"

type recordingSender struct {
	sync.Mutex
	queued    []string
	published []string
}

func (s *recordingSender) SendQueue(ctx context.Context, queue string, body []byte) error {
	s.Lock()
	s.queued = append(s.queued, queue+":"+string(body))
	s.Unlock()
	return nil
}

func (s *recordingSender) SendTopic(ctx context.Context, topic string, body []byte) error {
	s.Lock()
	s.published = append(s.published, topic+":"+string(body))
	s.Unlock()
	return nil
}

func (s *recordingSender) Close() error {
	return nil
}

type testEnv struct {
	*game.Env
	dispatcher *controller.Dispatcher
	sender     *recordingSender
	now        time.Time
}

// noArgs is the smallest well-formed envelope
func noArgs() map[string]interface{} {
	return map[string]interface{}{envelope.FieldRequestId: 1}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvOn(t, entitystoragememory.OpenMemory())
}

func newTestEnvOn(t *testing.T, backend storagecommon.TableStorage) *testEnv {
	cfg := config.Default()
	cfg.Server.ServerAuthKey = testServerKey
	cfg.Server.GlobalConfigRefreshInterval = 0
	cfg.Blob.Directory = t.TempDir()

	blobs, err := blobstore.Open(context.Background(), &cfg.Blob, cfg.Server.DeploymentTier)
	if err != nil {
		t.Fatal(err)
	}
	sender := &recordingSender{}
	env := game.NewEnv(cfg,
		storagecommon.NewService(backend),
		kvdbmemory.OpenMemoryKVDB(),
		msgbus.NewBus(sender, cfg.Server.DeploymentTier, false),
		blobs,
	)
	te := &testEnv{
		Env:    env,
		sender: sender,
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	env.Now = func() time.Time { return te.now }
	if err := env.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { env.Close() })

	reg := controller.NewRegistry()
	Register(reg, env)
	te.dispatcher = controller.NewDispatcher(reg, env.Gate)
	return te
}

func (te *testEnv) call(t *testing.T, name string, fields map[string]interface{}) *envelope.Response {
	route, ok := te.dispatcher.Registry().Lookup(name)
	if !ok {
		t.Fatalf("controller %s not registered", name)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := te.dispatcher.Dispatch(context.Background(), route, envelope.MustParse(string(data)), false)
	if err != nil {
		t.Fatalf("%s failed: %+v", name, err)
	}
	return resp
}

func (te *testEnv) server(t *testing.T, name string, fields map[string]interface{}) *envelope.Response {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields[envelope.FieldServerAuthKey] = testServerKey
	return te.call(t, name, fields)
}

func (te *testEnv) createAndAuth(t *testing.T, playerId string) string {
	resp := te.call(t, "CreatePlayer", map[string]interface{}{"PlayerId": playerId, "Password": "pw"})
	assert.Equal(t, "Ok", resp.Status())
	resp = te.call(t, "AuthPlayer", map[string]interface{}{"PlayerId": playerId, "Password": "pw"})
	assert.Equal(t, "Ok", resp.Status())
	return resp.Get("SessionToken").String()
}

func TestEndToEnd(t *testing.T) {
	te := newTestEnv(t)
	router := mux.NewRouter()
	te.dispatcher.RegisterRoutes(router)
	ts := httptest.NewServer(router)
	defer ts.Close()

	post := func(name string, body string) string {
		resp, err := http.Post(ts.URL+"/api/"+name, "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data, _ := io.ReadAll(resp.Body)
		return string(data)
	}
	statusOf := func(body string) string {
		resp := envelope.MustParse(body)
		return resp.String("Status")
	}

	assert.Equal(t, "Ok", statusOf(post("CreatePlayer", `{"PlayerId":"P1","Password":"pw"}`)))
	assert.Equal(t, "PlayerAlreadyExists", statusOf(post("CreatePlayer", `{"PlayerId":"P1","Password":"pw"}`)))
	assert.Equal(t, "WrongPassword", statusOf(post("AuthPlayer", `{"PlayerId":"P1","Password":"wrong"}`)))

	body := post("AuthPlayer", `{"PlayerId":"P1","Password":"pw"}`)
	assert.Equal(t, "Ok", statusOf(body))
	token := envelope.MustParse(body).String("SessionToken")
	assert.T(t, token != "")

	assert.Equal(t, "Ok", statusOf(post("CheckAuth", `{"PlayerId":"P1","SessionToken":"`+token+`"}`)))
	assert.Equal(t, "AuthFail", statusOf(post("CheckAuth", `{"PlayerId":"P1","SessionToken":"`+token+`x"}`)))
}

func TestCreatePlayer(t *testing.T) {
	te := newTestEnv(t)
	resp := te.call(t, "CreatePlayer", map[string]interface{}{"PlayerId": "P1"})
	assert.Equal(t, "RequestArgumentNotFound", resp.Status())
	assert.Equal(t, "Password", resp.Get("ArgumentName").String())

	te.createAndAuth(t, "P1")
	player, err := te.Players.Load(context.Background(), "P1")
	assert.Equal(t, nil, err)
	assert.Equal(t, []int{200, 200, 200}, player.Resources)
	assert.Equal(t, -1, player.SelectedCharacterIndex)
	assert.T(t, te.now.Equal(player.CreationDate))
	assert.T(t, player.PasswordHash != "pw")
}

func TestCreatePlayerWithAccessKeys(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	assert.Equal(t, nil, te.GlobalConfig.Update(ctx, func(gc *models.GlobalConfiguration) {
		gc.IsAccessKeysEnabled = true
	}))

	resp := te.server(t, "GenerateAccessKeys", map[string]interface{}{"Count": 2, "Email": "tester@example.com"})
	assert.Equal(t, "Ok", resp.Status())
	keys := resp.Get("Keys").Array()
	assert.Equal(t, 2, len(keys))

	resp = te.call(t, "CreatePlayer", map[string]interface{}{"PlayerId": "P1", "Password": "NOSUCHKEY0"})
	assert.Equal(t, "InvalidAccessKey", resp.Status())

	key := keys[0].String()
	resp = te.call(t, "CreatePlayer", map[string]interface{}{"PlayerId": "P1", "Password": key})
	assert.Equal(t, "Ok", resp.Status())
	stored, _ := te.AccessKeys.Load(ctx, key)
	assert.T(t, stored.IsActivated)
	assert.Equal(t, "tester@example.com", stored.AssociatedEmail)

	resp = te.call(t, "CreatePlayer", map[string]interface{}{"PlayerId": "P2", "Password": key})
	assert.Equal(t, "InvalidAccessKey", resp.Status())

	resp = te.call(t, "CreatePlayer", map[string]interface{}{"PlayerId": "P2", "Password": "pw", "AccessKey": keys[1].String()})
	assert.Equal(t, "Ok", resp.Status())
	resp = te.call(t, "AuthPlayer", map[string]interface{}{"PlayerId": "P2", "Password": "pw"})
	assert.Equal(t, "Ok", resp.Status())
}

// staleReadBackend can hide existing players from reads, as seen by a request racing another creation
type staleReadBackend struct {
	storagecommon.TableStorage
	hidePlayers bool
}

func (b *staleReadBackend) OpenTable(ctx context.Context, name string) (storagecommon.Table, error) {
	t, err := b.TableStorage.OpenTable(ctx, name)
	if err != nil || !strings.HasSuffix(name, "Players") {
		return t, err
	}
	return &staleReadTable{Table: t, backend: b}, nil
}

type staleReadTable struct {
	storagecommon.Table
	backend *staleReadBackend
}

func (t *staleReadTable) Get(ctx context.Context, partitionKey, rowKey string) (storagecommon.Row, error) {
	if t.backend.hidePlayers {
		return storagecommon.Row{}, storagecommon.ErrNotFound
	}
	return t.Table.Get(ctx, partitionKey, rowKey)
}

func TestCreatePlayerLostInsertKeepsAccessKey(t *testing.T) {
	backend := &staleReadBackend{TableStorage: entitystoragememory.OpenMemory()}
	te := newTestEnvOn(t, backend)
	ctx := context.Background()
	assert.Equal(t, nil, te.GlobalConfig.Update(ctx, func(gc *models.GlobalConfiguration) {
		gc.IsAccessKeysEnabled = true
	}))
	resp := te.server(t, "GenerateAccessKeys", map[string]interface{}{"Count": 1})
	assert.Equal(t, "Ok", resp.Status())
	key := resp.Get("Keys").Array()[0].String()

	// P1 is created by someone else after the request checked the id
	other := te.Players.New()
	other.Id = "P1"
	ok, err := te.Players.Insert(ctx, other, false)
	assert.Equal(t, nil, err)
	assert.T(t, ok)

	backend.hidePlayers = true
	resp = te.call(t, "CreatePlayer", map[string]interface{}{"PlayerId": "P1", "Password": key})
	assert.Equal(t, "PlayerAlreadyExists", resp.Status())
	backend.hidePlayers = false

	stored, err := te.AccessKeys.Load(ctx, key)
	assert.Equal(t, nil, err)
	assert.T(t, !stored.IsActivated)
	resp = te.call(t, "CreatePlayer", map[string]interface{}{"PlayerId": "P2", "Password": key})
	assert.Equal(t, "Ok", resp.Status())
}

func TestCreatePlayerWithDefaultCharacters(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []string{"Warrior", "Mage", "Rogue"} {
		meta := te.ClassMetas.New()
		meta.Id = id
		meta.IsInitiallyAvailable = id != "Rogue"
		meta.DefaultItems = []string{id + "Weapon", "Potion"}
		ok, err := te.ClassMetas.Insert(ctx, meta, true)
		assert.Equal(t, nil, err)
		assert.T(t, ok)
	}

	token := te.createAndAuth(t, "P1")
	player, err := te.Players.Load(ctx, "P1")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(player.Characters))
	mage, warrior := player.Characters[0], player.Characters[1]
	assert.Equal(t, "Mage", mage.ClassMetaId())
	assert.Equal(t, "Warrior", warrior.ClassMetaId())
	assert.Equal(t, models.InitialTalentPoints, mage.TalentPoints)
	assert.Equal(t, models.InitialTalentPoints, warrior.TalentPoints)

	// the potion goes to the first class only
	assert.Equal(t, 3, len(player.Items))
	assert.Equal(t, 2, len(player.EquippedItems(mage.Id)))
	assert.Equal(t, 1, len(player.EquippedItems(warrior.Id)))
	assert.Equal(t, "WarriorWeapon", player.EquippedItems(warrior.Id)[0].MetaId)

	req := map[string]interface{}{"PlayerId": "P1", "SessionToken": token, "CharacterIndex": 0}
	assert.Equal(t, "Ok", te.call(t, "SelectCharacter", req).Status())
	player, _ = te.Players.Load(ctx, "P1")
	assert.Equal(t, "Mage", player.SelectedCharacter().ClassMetaId())
}

func TestGenerateAccessKeysOvercount(t *testing.T) {
	te := newTestEnv(t)
	assert.Equal(t, "Overcount", te.server(t, "GenerateAccessKeys", map[string]interface{}{"Count": 0}).Status())
	assert.Equal(t, "Overcount", te.server(t, "GenerateAccessKeys", map[string]interface{}{"Count": 101}).Status())
	assert.Equal(t, "ServerAuthFail", te.call(t, "GenerateAccessKeys", map[string]interface{}{"Count": 1}).Status())
}

func TestTokenSingleValidity(t *testing.T) {
	te := newTestEnv(t)
	first := te.createAndAuth(t, "P1")
	resp := te.call(t, "AuthPlayer", map[string]interface{}{"PlayerId": "P1", "Password": "pw"})
	second := resp.Get("SessionToken").String()
	assert.NotEqual(t, first, second)

	assert.Equal(t, "AuthFail", te.call(t, "CheckAuth", map[string]interface{}{"PlayerId": "P1", "SessionToken": first}).Status())
	assert.Equal(t, "Ok", te.call(t, "CheckAuth", map[string]interface{}{"PlayerId": "P1", "SessionToken": second}).Status())
}

func TestPlayerResources(t *testing.T) {
	te := newTestEnv(t)
	token := te.createAndAuth(t, "P1")
	auth := func(fields map[string]interface{}) map[string]interface{} {
		fields["PlayerId"] = "P1"
		fields["SessionToken"] = token
		return fields
	}

	assert.Equal(t, "ServerAuthFail", te.call(t, "AddResources", auth(map[string]interface{}{"Resources": []int{1}})).Status())
	assert.Equal(t, "Ok", te.server(t, "AddResources", map[string]interface{}{"PlayerId": "P1", "Resources": []int{10, 0, 0, 5}}).Status())
	assert.Equal(t, "PlayerNotFound", te.server(t, "AddResources", map[string]interface{}{"PlayerId": "P9", "Resources": []int{1}}).Status())

	assert.Equal(t, "NotEnoughResources", te.call(t, "SpendResources", auth(map[string]interface{}{"Resources": []int{0, 0, 0, 6}})).Status())
	assert.Equal(t, "Ok", te.call(t, "SpendResources", auth(map[string]interface{}{"Resources": []int{210, 0, 0, 5}})).Status())

	resp := te.call(t, "GetPlayer", auth(map[string]interface{}{}))
	assert.Equal(t, "Ok", resp.Status())
	assert.Equal(t, `[0,200,200,0]`, resp.Get("Player.Resources").Raw)
	assert.Equal(t, "P1", resp.Get("Player.Id").String())
	assert.T(t, !resp.Get("Player.PasswordHash").Exists())
}

func TestSelectCharacter(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	token := te.createAndAuth(t, "P1")

	player, _ := te.Players.Load(ctx, "P1")
	player.Characters = append(player.Characters, models.NewCharacter("Warrior"), models.NewCharacter("Mage"))
	ok, err := te.Players.Replace(ctx, player)
	assert.Equal(t, nil, err)
	assert.T(t, ok)

	req := map[string]interface{}{"PlayerId": "P1", "SessionToken": token, "CharacterIndex": 2}
	assert.Equal(t, "CharacterNotFound", te.call(t, "SelectCharacter", req).Status())
	req["CharacterIndex"] = "1"
	assert.Equal(t, "Ok", te.call(t, "SelectCharacter", req).Status())

	player, _ = te.Players.Load(ctx, "P1")
	assert.Equal(t, "Mage", player.SelectedCharacter().ClassMetaId())
}

func TestServiceStatus(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()

	resp := te.call(t, "GetServiceStatus", noArgs())
	assert.Equal(t, "Ok", resp.Status())
	assert.Equal(t, "0.0.0", resp.Get("BuildVersion").String())

	te.GlobalConfig.Update(ctx, func(gc *models.GlobalConfiguration) {
		gc.IsServiceOnline = false
		gc.BuildVersion = "1.0.0"
	})
	resp = te.call(t, "GetServiceStatus", noArgs())
	assert.Equal(t, "Offline", resp.Status())
	assert.Equal(t, "1.0.0", resp.Get("BuildVersion").String())

	assert.Equal(t, "Ok", te.server(t, "RegisterGameServer", map[string]interface{}{"Ip": "10.0.0.1"}).Status())
	assert.Equal(t, "Ok", te.server(t, "UpdateBuild", map[string]interface{}{"BuildUri": "https://builds/1.0.1.zip"}).Status())
	assert.Equal(t, "Updating", te.call(t, "GetServiceStatus", noArgs()).Status())

	resp = te.call(t, "GetServerTime", noArgs())
	assert.Equal(t, "Ok", resp.Status())
	assert.Equal(t, "2024-05-01T12:00:00Z", resp.Get("ServerTime").String())
}

func TestGetJsonText(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()

	assert.Equal(t, "NotFound", te.call(t, "GetJsonText", map[string]interface{}{"Id": "Quests"}).Status())

	blob := te.JsonBlobs.New()
	blob.Id = "Quests"
	ok, err := te.JsonBlobs.Insert(ctx, blob, true)
	assert.Equal(t, nil, err)
	assert.T(t, ok)
	assert.Equal(t, "NotFound", te.call(t, "GetJsonText", map[string]interface{}{"Id": "Quests"}).Status())

	assert.Equal(t, nil, te.Blobs.Put(ctx, "json/Quests.json", []byte(`{"quests":[]}`)))
	resp := te.call(t, "GetJsonText", map[string]interface{}{"Id": "Quests"})
	assert.Equal(t, "Ok", resp.Status())
	assert.Equal(t, `{"quests":[]}`, resp.Get("JsonText").String())
}

func TestSetTalentPointsForAllPlayers(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []string{"P1", "P2", "P3"} {
		te.createAndAuth(t, id)
		player, _ := te.Players.Load(ctx, id)
		player.Characters = append(player.Characters, models.NewCharacter("Warrior"), models.NewCharacter("Mage"))
		te.Players.Replace(ctx, player)
	}

	req := map[string]interface{}{"TalentPoints": 7}
	assert.Equal(t, "UtilityOperationsNotAllowed", te.server(t, "SetTalentPointsForAllPlayers", req).Status())

	te.GlobalConfig.Update(ctx, func(gc *models.GlobalConfiguration) {
		gc.IsUtilityOperationsAllowed = true
	})
	resp := te.server(t, "SetTalentPointsForAllPlayers", req)
	assert.Equal(t, "Ok", resp.Status())
	assert.Equal(t, int64(3), resp.Get("PlayersUpdated").Int())
	assert.Equal(t, int64(0), resp.Get("OccFails").Int())

	player, _ := te.Players.Load(ctx, "P2")
	for _, c := range player.Characters {
		assert.Equal(t, 7, c.TalentPoints)
	}
}

func (te *testEnv) addArena(t *testing.T, id string, maxPlayers int) {
	meta := te.ArenaMetas.New()
	meta.Id = id
	meta.MaxPlayers = maxPlayers
	ok, err := te.ArenaMetas.Insert(context.Background(), meta, true)
	assert.Equal(t, nil, err)
	assert.T(t, ok)
}

func TestInstanceWorkflow(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	token := te.createAndAuth(t, "P1")
	te.addArena(t, "Arena_1", 2)
	assert.Equal(t, "Ok", te.server(t, "RegisterGameServer", map[string]interface{}{"Ip": "10.0.0.1"}).Status())

	request := map[string]interface{}{"PlayerId": "P1", "SessionToken": token, "ArenaMetaId": "Arena_1"}
	assert.Equal(t, "MetaNotFound", te.call(t, "RequestInstance", map[string]interface{}{"PlayerId": "P1", "SessionToken": token, "ArenaMetaId": "Arena_9"}).Status())

	// no instance yet: one request is queued, the second waits for it
	assert.Equal(t, "Wait", te.call(t, "RequestInstance", request).Status())
	assert.Equal(t, "Wait", te.call(t, "RequestInstance", request).Status())
	te.Bus.Flush()
	assert.Equal(t, []string{"D-InstanceRequestQueue:Arena_1"}, te.sender.queued)

	// a stale request is issued again
	te.now = te.now.Add(2 * time.Minute)
	assert.Equal(t, "Wait", te.call(t, "RequestInstance", request).Status())
	te.Bus.Flush()
	assert.Equal(t, 2, len(te.sender.queued))

	ready := map[string]interface{}{"Ip": "10.0.0.1", "Port": "7777", "ArenaMetaId": "Arena_1"}
	assert.Equal(t, "Ok", te.server(t, "OnInstanceReady", ready).Status())
	assert.Equal(t, "RequestedInstanceNotFound", te.server(t, "OnInstanceReady", ready).Status())

	resp := te.call(t, "RequestInstance", request)
	assert.Equal(t, "Ok", resp.Status())
	assert.Equal(t, "10.0.0.1", resp.Get("Ip").String())
	assert.Equal(t, "7777", resp.Get("Port").String())
	assert.Equal(t, "Ok", te.call(t, "RequestInstance", request).Status())

	// the instance is full
	assert.Equal(t, "Wait", te.call(t, "RequestInstance", request).Status())

	addr := map[string]interface{}{"Ip": "10.0.0.1", "Port": "7777"}
	assert.Equal(t, "Ok", te.server(t, "OnPlayerDisconnected", addr).Status())
	assert.Equal(t, "NotFound", te.server(t, "OnPlayerDisconnected", map[string]interface{}{"Ip": "10.0.0.1", "Port": "1"}).Status())
	server, _ := te.GameServers.Load(ctx, "10.0.0.1")
	assert.Equal(t, 1, server.ActiveInstances[0].FreeSlots)

	assert.Equal(t, "Ok", te.server(t, "SetIsInstanceOpen", map[string]interface{}{"Ip": "10.0.0.1", "Port": "7777", "IsOpen": false}).Status())
	server, _ = te.GameServers.Load(ctx, "10.0.0.1")
	assert.T(t, !server.ActiveInstances[0].IsOpen)

	assert.Equal(t, "Ok", te.server(t, "DisableArena", map[string]interface{}{"ArenaMetaId": "Arena_1"}).Status())
	assert.Equal(t, "ArenaUnavailable", te.call(t, "RequestInstance", request).Status())
	assert.Equal(t, "MetaNotFound", te.server(t, "DisableArena", map[string]interface{}{"ArenaMetaId": "Arena_9"}).Status())
}

func TestUpdateBuild(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	token := te.createAndAuth(t, "P1")
	te.addArena(t, "Arena_1", 4)
	te.addArena(t, "Arena_2", 4)
	te.server(t, "RegisterGameServer", map[string]interface{}{"Ip": "10.0.0.1"})
	te.server(t, "RegisterGameServer", map[string]interface{}{"Ip": "10.0.0.2"})
	te.call(t, "RequestInstance", map[string]interface{}{"PlayerId": "P1", "SessionToken": token, "ArenaMetaId": "Arena_1"})
	te.server(t, "OnInstanceReady", map[string]interface{}{"Ip": "10.0.0.1", "Port": "7777", "ArenaMetaId": "Arena_1"})
	te.call(t, "RequestInstance", map[string]interface{}{"PlayerId": "P1", "SessionToken": token, "ArenaMetaId": "Arena_2"})

	assert.Equal(t, "RequestArgumentNotFound", te.server(t, "UpdateBuild", nil).Status())
	assert.Equal(t, "Ok", te.server(t, "UpdateBuild", map[string]interface{}{"BuildUri": "https://builds/2.zip"}).Status())
	te.Bus.Flush()
	assert.Equal(t, []string{"D-UpdateBuildTopic:https://builds/2.zip"}, te.sender.published)

	servers, err := te.GameServers.ScanAll(ctx, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(servers))
	for _, server := range servers {
		assert.T(t, server.IsUpdating)
		assert.Equal(t, 0, len(server.ActiveInstances))
	}
	requests, _ := te.RequestedInstances.ScanAll(ctx, 0)
	assert.Equal(t, 0, len(requests))

	assert.Equal(t, "Ok", te.server(t, "UpdateComplete", map[string]interface{}{"Ip": "10.0.0.1"}).Status())
	assert.Equal(t, "NotFound", te.server(t, "UpdateComplete", map[string]interface{}{"Ip": "10.9.9.9"}).Status())
	server, _ := te.GameServers.Load(ctx, "10.0.0.1")
	assert.T(t, !server.IsUpdating)
}

func TestRegistry(t *testing.T) {
	te := newTestEnv(t)
	names := te.dispatcher.Registry().Names()
	assert.Equal(t, 21, len(names))
	route, ok := te.dispatcher.Registry().Lookup("RequestInstance")
	assert.T(t, ok)
	assert.Equal(t, controller.Player, route.Access)
	_, ok = te.dispatcher.Registry().Lookup("RequestInstanceController")
	assert.T(t, !ok)
}
