package kvdbredis

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/kvdb/types"
)

const (
	keyPrefix = "_KV_"
)

type redisKVDB struct {
	pool *redis.Pool
}

// OpenRedisKVDB opens Redis for KVDB backend
//
// All operations share one connection pool for the process lifetime.
func OpenRedisKVDB(url string, dbindex int) (kvdbtypes.KVDBEngine, error) {
	pool := &redis.Pool{
		MaxIdle:     16,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(url,
				redis.DialDatabase(dbindex),
				redis.DialConnectTimeout(10*time.Second),
				redis.DialReadTimeout(10*time.Second),
				redis.DialWriteTimeout(10*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	c := pool.Get()
	defer c.Close()
	if _, err := c.Do("PING"); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "redis dail failed")
	}

	return &redisKVDB{pool: pool}, nil
}

func (db *redisKVDB) conn(ctx context.Context) (redis.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := db.pool.Get()
	if err := c.Err(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (db *redisKVDB) Get(ctx context.Context, key string) (string, bool, error) {
	c, err := db.conn(ctx)
	if err != nil {
		return "", false, err
	}
	defer c.Close()

	val, err := redis.String(c.Do("GET", keyPrefix+key))
	if err == redis.ErrNil {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (db *redisKVDB) SetEx(ctx context.Context, key string, val string, ttl time.Duration) error {
	c, err := db.conn(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	_, err = c.Do("SET", keyPrefix+key, val, "EX", seconds)
	return err
}

func (db *redisKVDB) Del(ctx context.Context, key string) error {
	c, err := db.conn(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	_, err = c.Do("DEL", keyPrefix+key)
	return err
}

func (db *redisKVDB) Close() error {
	return db.pool.Close()
}

func (db *redisKVDB) IsConnectionError(err error) bool {
	err = errors.Cause(err)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return true
	}
	_, ok := err.(net.Error)
	return ok
}
