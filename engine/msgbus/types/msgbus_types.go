package msgbustypes

import "context"

// Sender defines the interface of an outbound messaging backend
//
// A queue message is consumed by exactly one receiver. A topic message is delivered to every subscriber.
type Sender interface {
	SendQueue(ctx context.Context, queue string, body []byte) error
	SendTopic(ctx context.Context, topic string, body []byte) error
	Close() error
}
