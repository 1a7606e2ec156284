package msgbusredis

import (
	"context"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/msgbus/types"
)

// Queues are redis lists fed with RPUSH, topics are pub/sub channels.
type redisSender struct {
	pool *redis.Pool
}

// OpenRedisSender opens Redis as the outbound messaging backend
func OpenRedisSender(url string) (msgbustypes.Sender, error) {
	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(url,
				redis.DialConnectTimeout(10*time.Second),
				redis.DialReadTimeout(10*time.Second),
				redis.DialWriteTimeout(10*time.Second),
			)
		},
	}

	c := pool.Get()
	defer c.Close()
	if _, err := c.Do("PING"); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "redis dail failed")
	}
	return &redisSender{pool: pool}, nil
}

func (s *redisSender) do(ctx context.Context, cmd string, name string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := s.pool.Get()
	defer c.Close()
	_, err := c.Do(cmd, name, body)
	return errors.Wrapf(err, "%s %s", cmd, name)
}

func (s *redisSender) SendQueue(ctx context.Context, queue string, body []byte) error {
	return s.do(ctx, "RPUSH", queue, body)
}

func (s *redisSender) SendTopic(ctx context.Context, topic string, body []byte) error {
	return s.do(ctx, "PUBLISH", topic, body)
}

func (s *redisSender) Close() error {
	return s.pool.Close()
}
