package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// newTestClient starts a miniredis server and returns a client on it.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Success(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "test:", client.Prefix())
}

func TestNewClient_DefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, config.DefaultRedisKeyPrefix+"job:1", client.Key("job", "1"))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}, nil)
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
}

func TestClient_Operations(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, client.Key("foo"), "bar", time.Minute).Err())
	assert.True(t, mr.Exists("test:foo"))

	val, err := client.Get(ctx, client.Key("foo")).Result()
	require.NoError(t, err)
	assert.Equal(t, "bar", val)

	ok, err := client.SetNX(ctx, client.Key("foo"), "baz", 0).Result()
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := client.PTTL(ctx, client.Key("foo")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	n, err := client.Del(ctx, client.Key("foo")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = client.Exists(ctx, client.Key("foo")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, client.ZAdd(ctx, client.Key("z"), goredis.Z{Score: 1, Member: "a"}, goredis.Z{Score: 2, Member: "b"}).Err())
	members, err := client.ZRevRange(ctx, client.Key("z"), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, members)
}

func TestClient_Closed(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
	assert.Equal(t, ErrClientClosed, client.Get(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Set(ctx, "k", "v", 0).Err())
	assert.Equal(t, ErrClientClosed, client.SetNX(ctx, "k", "v", 0).Err())
	assert.Equal(t, ErrClientClosed, client.Del(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Exists(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.PTTL(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.ZRevRange(ctx, "k", 0, 1).Err())
	assert.Equal(t, ErrClientClosed, client.Scan(ctx, 0, "*", 10).Err())
}

//Personal.AI order the ending
