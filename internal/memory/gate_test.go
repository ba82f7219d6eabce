package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisGate(t *testing.T, ttl time.Duration) (*RedisGate, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	gate := NewRedisGateFromClient(client, ttl)
	t.Cleanup(func() { _ = gate.Close() })
	return gate, mr
}

func TestGates_MutualExclusion(t *testing.T) {
	redisGate, _ := newTestRedisGate(t, time.Minute)

	gates := map[string]Gate{
		"local": NewLocalGate(),
		"redis": redisGate,
	}

	for name, gate := range gates {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var winners atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := gate.Acquire(ctx, "s1")
					assert.NoError(t, err)
					if ok {
						winners.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), winners.Load())

			ok, err := gate.Acquire(ctx, "s2")
			require.NoError(t, err)
			assert.True(t, ok, "sessions do not share a flag")

			require.NoError(t, gate.Release(ctx, "s1"))
			ok, err = gate.Acquire(ctx, "s1")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestLocalGate_ReleaseUnknownSession(t *testing.T) {
	assert.NoError(t, NewLocalGate().Release(context.Background(), "missing"))
}

func TestRedisGate_FlagExpires(t *testing.T) {
	gate, mr := newTestRedisGate(t, 2*time.Second)
	ctx := context.Background()

	ok, err := gate.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("newsbuddy:busy:s1"))

	mr.FastForward(3 * time.Second)

	other := NewRedisGateFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 2*time.Second)
	defer func() { _ = other.Close() }()

	ok, err = other.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok, "expired flag can be taken by another replica")

	// The stale holder must not clear the new owner's flag.
	require.NoError(t, gate.Release(ctx, "s1"))
	assert.True(t, mr.Exists("newsbuddy:busy:s1"))

	require.NoError(t, other.Release(ctx, "s1"))
	assert.False(t, mr.Exists("newsbuddy:busy:s1"))
}

func TestRedisGate_ConnectionFailure(t *testing.T) {
	gate, mr := newTestRedisGate(t, time.Minute)
	mr.Close()

	ok, err := gate.Acquire(context.Background(), "s1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewRedisGate_BadURL(t *testing.T) {
	_, err := NewRedisGate("not a url", time.Minute)
	assert.Error(t, err)
}

func TestNewRedisGate_Ping(t *testing.T) {
	mr := miniredis.RunT(t)
	gate, err := NewRedisGate("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer func() { _ = gate.Close() }()
	assert.NoError(t, gate.Ping(context.Background()))
}

func TestManager_PingGate(t *testing.T) {
	ctx := context.Background()

	local := NewManager(&fakeChatter{}, nil, nil, testLogger())
	assert.NoError(t, local.PingGate(ctx))

	redisGate, _ := newTestRedisGate(t, time.Minute)
	assert.NoError(t, NewManager(&fakeChatter{}, redisGate, nil, testLogger()).PingGate(ctx))

	unreachable := NewRedisGateFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}), time.Minute)
	defer func() { _ = unreachable.Close() }()
	assert.Error(t, NewManager(&fakeChatter{}, unreachable, nil, testLogger()).PingGate(ctx))
}
