package msgbusservicebus

import (
	"context"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/msgbus/types"
)

type serviceBusSender struct {
	client *azservicebus.Client
	admin  *admin.Client

	lock    sync.Mutex
	senders map[string]*azservicebus.Sender
}

// OpenServiceBus opens an Azure Service Bus namespace as the outbound messaging backend.
//
// Queues and topics are created on first use when they do not exist yet.
func OpenServiceBus(connectionString string) (msgbustypes.Sender, error) {
	client, err := azservicebus.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "service bus client")
	}
	adminClient, err := admin.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		client.Close(context.Background())
		return nil, errors.Wrap(err, "service bus admin client")
	}
	return &serviceBusSender{
		client:  client,
		admin:   adminClient,
		senders: map[string]*azservicebus.Sender{},
	}, nil
}

func (s *serviceBusSender) SendQueue(ctx context.Context, queue string, body []byte) error {
	sender, err := s.sender(ctx, queue, s.ensureQueue)
	if err != nil {
		return err
	}
	return errors.Wrapf(sender.SendMessage(ctx, &azservicebus.Message{Body: body}, nil), "send to queue %s", queue)
}

func (s *serviceBusSender) SendTopic(ctx context.Context, topic string, body []byte) error {
	sender, err := s.sender(ctx, topic, s.ensureTopic)
	if err != nil {
		return err
	}
	return errors.Wrapf(sender.SendMessage(ctx, &azservicebus.Message{Body: body}, nil), "send to topic %s", topic)
}

// sender returns the cached sender of a queue or topic, ensuring the entity exists before the first send
func (s *serviceBusSender) sender(ctx context.Context, name string, ensure func(context.Context, string) error) (*azservicebus.Sender, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if sender, ok := s.senders[name]; ok {
		return sender, nil
	}
	if err := ensure(ctx, name); err != nil {
		return nil, err
	}
	sender, err := s.client.NewSender(name, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "new sender %s", name)
	}
	s.senders[name] = sender
	return sender, nil
}

func (s *serviceBusSender) ensureQueue(ctx context.Context, queue string) error {
	resp, err := s.admin.GetQueue(ctx, queue, nil)
	if err != nil {
		return errors.Wrapf(err, "get queue %s", queue)
	}
	if resp != nil {
		return nil
	}
	gwlog.Infof("service bus: creating queue %s", queue)
	if _, err := s.admin.CreateQueue(ctx, queue, nil); err != nil && !isConflict(err) {
		return errors.Wrapf(err, "create queue %s", queue)
	}
	return nil
}

func (s *serviceBusSender) ensureTopic(ctx context.Context, topic string) error {
	resp, err := s.admin.GetTopic(ctx, topic, nil)
	if err != nil {
		return errors.Wrapf(err, "get topic %s", topic)
	}
	if resp != nil {
		return nil
	}
	gwlog.Infof("service bus: creating topic %s", topic)
	if _, err := s.admin.CreateTopic(ctx, topic, nil); err != nil && !isConflict(err) {
		return errors.Wrapf(err, "create topic %s", topic)
	}
	return nil
}

// isConflict reports that another process created the entity first
func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

func (s *serviceBusSender) Close() error {
	ctx := context.Background()
	s.lock.Lock()
	for name, sender := range s.senders {
		if err := sender.Close(ctx); err != nil {
			gwlog.Warnf("service bus: close sender %s failed: %s", name, err)
		}
	}
	s.senders = map[string]*azservicebus.Sender{}
	s.lock.Unlock()
	return s.client.Close(ctx)
}
