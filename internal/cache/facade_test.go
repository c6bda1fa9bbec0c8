package cache

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

	"github.com/faizvk/ecommerce-app/internal/config"
)

func testConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:        true,
		TTL:            300 * time.Second,
		OpTimeout:      200 * time.Millisecond,
		ConnectTimeout: 500 * time.Millisecond,
		RetryAfter:     time.Hour,
	}
}

func newTestFacade(t *testing.T) (*Facade, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	f := NewFacade(testConfig(), &redis.Options{Addr: mr.Addr()}, nil)
	t.Cleanup(func() { _ = f.Close() })
	return f, mr
}

func deadFacade(t *testing.T) *Facade {
	t.Helper()
	f := NewFacade(testConfig(), &redis.Options{Addr: "127.0.0.1:1"}, nil)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFacadeGetSet(t *testing.T) {
	f, mr := newTestFacade(t)
	ctx := context.Background()

	_, st := f.Get(ctx, "k")
	assert.Equal(t, Miss, st)

	f.Set(ctx, "k", []byte("v"), time.Minute)
	b, st := f.Get(ctx, "k")
	assert.Equal(t, Hit, st)
	assert.Equal(t, "v", string(b))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	f.Delete(ctx, "k")
	_, st = f.Get(ctx, "k")
	assert.Equal(t, Miss, st)
}

func TestFacadeVersionCounter(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	v, ok := f.Version(ctx, "products:version")
	require.True(t, ok)
	assert.Equal(t, int64(1), v, "absent counter reads as 1")

	n, ok := f.IncrementVersion(ctx, "products:version")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)

	n, ok = f.IncrementVersion(ctx, "products:version")
	require.True(t, ok)
	assert.Equal(t, int64(3), n)

	v, ok = f.Version(ctx, "products:version")
	require.True(t, ok)
	assert.Equal(t, int64(3), v)
}

func TestFacadeConcurrentFirstUseDialsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	var connects atomic.Int32
	opts := &redis.Options{
		Addr: mr.Addr(),
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			connects.Add(1)
			return nil
		},
	}
	f := NewFacade(testConfig(), opts, nil)
	t.Cleanup(func() { _ = f.Close() })

	const callers = 32
	clients := make([]*redis.Client, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			clients[i] = f.Acquire(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	require.NotNil(t, clients[0])
	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
	assert.Equal(t, int32(1), connects.Load())
}

func TestFacadeUnreachableIsSoft(t *testing.T) {
	f := deadFacade(t)
	ctx := context.Background()

	assert.False(t, f.Available(ctx))
	_, st := f.Get(ctx, "k")
	assert.Equal(t, Down, st)
	f.Set(ctx, "k", []byte("v"), time.Minute)
	f.Delete(ctx, "k")
	_, ok := f.IncrementVersion(ctx, "products:version")
	assert.False(t, ok)
	_, ok = f.Version(ctx, "products:version")
	assert.False(t, ok)
}

func TestFacadeCoolsDownAfterFailure(t *testing.T) {
	f := deadFacade(t)
	now := time.Now()
	f.now = func() time.Time { return now }

	assert.Nil(t, f.Acquire(context.Background()))
	f.opts.Addr = "unused:0" // a second dial would see this address
	assert.Nil(t, f.Acquire(context.Background()))

	mr := miniredis.RunT(t)
	f.opts.Addr = mr.Addr()
	now = now.Add(2 * time.Hour)
	assert.NotNil(t, f.Acquire(context.Background()), "dials again once the cool-down has passed")
}

func TestFacadeServerLostAfterConnect(t *testing.T) {
	f, mr := newTestFacade(t)
	ctx := context.Background()
	f.Set(ctx, "k", []byte("v"), time.Minute)

	mr.Close()
	_, st := f.Get(ctx, "k")
	assert.Equal(t, Down, st)
	_, ok := f.IncrementVersion(ctx, "products:version")
	assert.False(t, ok)
}

func TestFacadeCallerCancelDoesNotTrip(t *testing.T) {
	f, _ := newTestFacade(t)
	f.Set(context.Background(), "k", []byte("v"), time.Minute)
	_, st := f.Get(context.Background(), "k")
	require.Equal(t, Hit, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, st = f.Get(ctx, "k")
	assert.NotEqual(t, Hit, st)
	f.Set(ctx, "k", []byte("w"), time.Minute)
	f.Delete(ctx, "k")
	_, ok := f.IncrementVersion(ctx, "products:version")
	assert.False(t, ok)

	assert.True(t, f.Available(context.Background()))
	b, st := f.Get(context.Background(), "k")
	assert.Equal(t, Hit, st)
	assert.Equal(t, "v", string(b))
}

func TestFacadeExpiredCallerDeadlineDoesNotTrip(t *testing.T) {
	f, _ := newTestFacade(t)
	f.Set(context.Background(), "k", []byte("v"), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	_, _ = f.Get(ctx, "k")

	_, st := f.Get(context.Background(), "k")
	assert.Equal(t, Hit, st)
}

func TestFacadeDisabled(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Enabled = false
	f := NewFacade(cfg, &redis.Options{Addr: mr.Addr()}, nil)

	_, st := f.Get(context.Background(), "k")
	assert.Equal(t, Down, st)
	assert.Nil(t, NewFacade(testConfig(), nil, nil).Acquire(context.Background()))
}
