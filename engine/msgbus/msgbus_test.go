package msgbus

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/config"
)

type sentMessage struct {
	kind string
	name string
	body string
}

type recordingSender struct {
	sync.Mutex
	sent   []sentMessage
	fail   bool
	closed bool
}

func (s *recordingSender) record(kind, name string, body []byte) error {
	s.Lock()
	defer s.Unlock()
	if s.fail {
		return errors.New("backend unavailable")
	}
	s.sent = append(s.sent, sentMessage{kind, name, string(body)})
	return nil
}

func (s *recordingSender) SendQueue(ctx context.Context, queue string, body []byte) error {
	return s.record("queue", queue, body)
}

func (s *recordingSender) SendTopic(ctx context.Context, topic string, body []byte) error {
	return s.record("topic", topic, body)
}

func (s *recordingSender) Close() error {
	s.closed = true
	return nil
}

func TestNames(t *testing.T) {
	bus := NewBus(&recordingSender{}, config.DevelopmentTier, false)
	assert.Equal(t, "D-InstanceRequestQueue", bus.InstanceRequestQueue())
	assert.Equal(t, "D-UpdateBuildTopic", bus.UpdateBuildTopic())

	bus = NewBus(&recordingSender{}, config.ProductionTier, false)
	assert.Equal(t, "P-InstanceRequestQueue", bus.InstanceRequestQueue())
	assert.Equal(t, "P-UpdateBuildTopic", bus.UpdateBuildTopic())
}

func TestSend(t *testing.T) {
	sender := &recordingSender{}
	bus := NewBus(sender, config.TestTier, false)
	bus.QueueInstanceRequest("Arena_1")
	bus.PublishUpdateBuild("https://builds/1.2.3.zip")
	assert.Equal(t, nil, bus.Close())

	assert.Equal(t, []sentMessage{
		{"queue", "T-InstanceRequestQueue", "Arena_1"},
		{"topic", "T-UpdateBuildTopic", "https://builds/1.2.3.zip"},
	}, sender.sent)
	assert.T(t, sender.closed)
}

func TestSuppressed(t *testing.T) {
	sender := &recordingSender{}
	bus := NewBus(sender, config.DevelopmentTier, true)
	bus.QueueInstanceRequest("Arena_1")
	bus.PublishUpdateBuild("uri")
	bus.Flush()
	assert.Equal(t, 0, len(sender.sent))
}

func TestSendFailureIsSwallowed(t *testing.T) {
	sender := &recordingSender{fail: true}
	bus := NewBus(sender, config.DevelopmentTier, false)
	bus.QueueInstanceRequest("Arena_1")
	bus.Flush()
	assert.Equal(t, 0, len(sender.sent))
}

func TestOpen(t *testing.T) {
	bus, err := Open(&config.MsgBusConfig{Type: "none"}, config.DevelopmentTier, false)
	assert.Equal(t, nil, err)
	bus.QueueInstanceRequest("Arena_1")
	assert.Equal(t, nil, bus.Close())

	_, err = Open(&config.MsgBusConfig{Type: "carrier-pigeon"}, config.DevelopmentTier, false)
	assert.T(t, err != nil)
}

func TestRedis(t *testing.T) {
	url := os.Getenv("SAGANET_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SAGANET_TEST_REDIS_URL not set")
	}
	bus, err := Open(&config.MsgBusConfig{Type: "redis", Url: url}, config.TestTier, false)
	if err != nil {
		t.Fatal(err)
	}
	bus.QueueInstanceRequest("Arena_1")
	bus.PublishUpdateBuild("uri")
	assert.Equal(t, nil, bus.Close())
}
