// Package msgbus sends the fire-and-forget notifications of the master service.
//
// Sends run on the "msgbus" async group so a slow or failing backend never blocks a request.
// Failures are logged and counted but never reported to the caller.
package msgbus

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xiaonanln/saganet/engine/async"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/msgbus/backend/msgbusredis"
	"github.com/xiaonanln/saganet/engine/msgbus/backend/msgbusservicebus"
	"github.com/xiaonanln/saganet/engine/msgbus/types"
	"github.com/xiaonanln/saganet/engine/opmon"
)

const asyncGroup = "msgbus"

// Sender is the outbound messaging backend
type Sender = msgbustypes.Sender

var sendFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "saganet",
	Name:      "msgbus_send_failures_total",
	Help:      "Outbound messages that could not be sent.",
})

func init() {
	opmon.Registry.MustRegister(sendFailures)
}

// Bus names the queues and topics of one deployment tier and sends messages to them
type Bus struct {
	sender     Sender
	tier       config.Tier
	suppressed bool
}

// NewBus creates a bus sending through sender. A suppressed bus only logs what it would send.
func NewBus(sender Sender, tier config.Tier, suppressed bool) *Bus {
	return &Bus{
		sender:     sender,
		tier:       tier,
		suppressed: suppressed,
	}
}

// Open opens the backend selected by the config.
// Test environments never send real messages.
func Open(cfg *config.MsgBusConfig, tier config.Tier, isTestEnvironment bool) (*Bus, error) {
	gwlog.Infof("MsgBus initializing, type %s, tier %s", cfg.Type, tier)

	var sender Sender
	var err error
	switch cfg.Type {
	case "none":
		sender = logSender{}
	case "servicebus":
		sender, err = msgbusservicebus.OpenServiceBus(cfg.Url)
	case "redis":
		sender, err = msgbusredis.OpenRedisSender(cfg.Url)
	default:
		err = errors.Errorf("msgbus type %s is not implemented", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return NewBus(sender, tier, isTestEnvironment), nil
}

// InstanceRequestQueue is the queue game servers poll for instance requests, e.g. D-InstanceRequestQueue
func (b *Bus) InstanceRequestQueue() string {
	return b.tier.QueuePrefix() + consts.INSTANCE_REQUEST_QUEUE_SUFFIX
}

// UpdateBuildTopic is the topic announcing a new game server build, e.g. D-UpdateBuildTopic
func (b *Bus) UpdateBuildTopic() string {
	return b.tier.QueuePrefix() + consts.UPDATE_BUILD_TOPIC_SUFFIX
}

// QueueInstanceRequest asks one game server to start an instance of the arena
func (b *Bus) QueueInstanceRequest(arenaMetaId string) {
	b.send(b.InstanceRequestQueue(), []byte(arenaMetaId), b.sender.SendQueue)
}

// PublishUpdateBuild tells every game server to download the build at buildUri
func (b *Bus) PublishUpdateBuild(buildUri string) {
	b.send(b.UpdateBuildTopic(), []byte(buildUri), b.sender.SendTopic)
}

func (b *Bus) send(name string, body []byte, sendFunc func(context.Context, string, []byte) error) {
	if b.suppressed {
		gwlog.Infof("msgbus: test environment, not sending %q to %s", body, name)
		return
	}
	if consts.DEBUG_MSGBUS {
		gwlog.Debugf("msgbus: sending %q to %s", body, name)
	}

	async.TryAppendAsyncJob(asyncGroup, func() (interface{}, error) {
		op := opmon.StartOperation("msgbus.send")
		defer op.Finish(consts.MSGBUS_SEND_TIMEOUT / 2)

		ctx, cancel := context.WithTimeout(context.Background(), consts.MSGBUS_SEND_TIMEOUT)
		defer cancel()
		return nil, sendFunc(ctx, name, body)
	}, func(_ interface{}, err error) {
		if err != nil {
			sendFailures.Inc()
			gwlog.Errorf("msgbus: send %q to %s failed: %+v", body, name, err)
		}
	})
}

// Flush waits until every message handed to the bus so far has been sent or dropped
func (b *Bus) Flush() {
	async.Flush(asyncGroup)
}

// Close flushes pending messages and closes the backend
func (b *Bus) Close() error {
	b.Flush()
	return b.sender.Close()
}

// logSender is used when no messaging backend is configured
type logSender struct{}

func (logSender) SendQueue(ctx context.Context, queue string, body []byte) error {
	gwlog.Infof("msgbus: no backend, dropped %q for queue %s", body, queue)
	return nil
}

func (logSender) SendTopic(ctx context.Context, topic string, body []byte) error {
	gwlog.Infof("msgbus: no backend, dropped %q for topic %s", body, topic)
	return nil
}

func (logSender) Close() error {
	return nil
}
