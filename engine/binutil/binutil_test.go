package binutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/saganet/engine/auth"
	"github.com/xiaonanln/saganet/engine/controller"
	"github.com/xiaonanln/saganet/engine/kvdb/backend/kvdbmemory"
	"github.com/xiaonanln/saganet/engine/status"
)

type ping struct{}

func (ping) Execute(c *controller.Context) (status.Status, error) {
	return status.Ok, nil
}

func TestRouter(t *testing.T) {
	reg := controller.NewRegistry()
	reg.Register("Ping", controller.Public, func() controller.Handler { return ping{} })
	gate := auth.NewGate(true, "key", kvdbmemory.OpenMemoryKVDB())
	ts := httptest.NewServer(NewRouter(controller.NewDispatcher(reg, gate)))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/Ping", "application/json", strings.NewReader(`{"RequestId":1}`))
	assert.Equal(t, nil, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"Status":"Ok"}`, string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	assert.Equal(t, nil, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.T(t, strings.Contains(string(body), `saganet_requests_total{controller="Ping",status="Ok"} 1`))
}

func TestPprofDisabled(t *testing.T) {
	assert.Equal(t, (*http.Server)(nil), SetupPprofServer("127.0.0.1", 0))
}
