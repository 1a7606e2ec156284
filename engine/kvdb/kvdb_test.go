package kvdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/kvdb/backend/kvdbmemory"
)

func testEngine(t *testing.T, engine Engine) {
	ctx := context.Background()
	_, ok, err := engine.Get(ctx, "__key_not_exists__")
	assert.Equal(t, nil, err)
	assert.T(t, !ok)

	assert.Equal(t, nil, engine.SetEx(ctx, "a", "111", time.Minute))
	val, ok, err := engine.Get(ctx, "a")
	assert.Equal(t, nil, err)
	assert.T(t, ok)
	assert.Equal(t, "111", val)

	assert.Equal(t, nil, engine.SetEx(ctx, "a", "222", time.Minute))
	val, _, _ = engine.Get(ctx, "a")
	assert.Equal(t, "222", val)

	assert.Equal(t, nil, engine.Del(ctx, "a"))
	_, ok, _ = engine.Get(ctx, "a")
	assert.T(t, !ok)
}

func TestMemory(t *testing.T) {
	engine, err := Open(&config.KVDBConfig{Type: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()
	testEngine(t, engine)
}

func TestMemoryExpiry(t *testing.T) {
	db := kvdbmemory.OpenMemoryKVDB()
	now := time.Now()
	db.SetClock(func() time.Time { return now })
	engine := Monitored(db)
	ctx := context.Background()

	assert.Equal(t, nil, engine.SetEx(ctx, "k", "v", time.Hour))
	now = now.Add(time.Hour - time.Second)
	_, ok, _ := engine.Get(ctx, "k")
	assert.T(t, ok, "not yet expired")

	now = now.Add(time.Second)
	_, ok, _ = engine.Get(ctx, "k")
	assert.T(t, !ok, "expired at ttl")
}

func TestRedis(t *testing.T) {
	url := os.Getenv("SAGANET_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SAGANET_TEST_REDIS_URL not set")
	}
	engine, err := Open(&config.KVDBConfig{Type: "redis", Url: url, DB: "0"})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()
	testEngine(t, engine)
}

func TestUnknownType(t *testing.T) {
	_, err := Open(&config.KVDBConfig{Type: "leveldb"})
	assert.T(t, err != nil)
}
