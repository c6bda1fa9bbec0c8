// Package cache wraps the external Redis process behind a best-effort
// facade and builds the version-qualified keys used by the catalog.
//
// Nothing in this package returns an error to its caller.  A connection
// failure, a timeout or a disabled cache all collapse into "no cache", and
// the caller proceeds against the primary store.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/faizvk/ecommerce-app/internal/config"
)

// Status is the outcome of a read.
type Status int

const (
	Miss Status = iota // backend reachable, key absent
	Hit                // value returned
	Down               // no cache: disabled, unreachable or timed out
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "down"
	}
}

// Facade is the single shared handle on the cache backend.  The connection
// is established lazily on first use; concurrent first callers share one
// connect attempt.  After a failure the facade stays in "no cache" mode for
// cfg.RetryAfter before dialing again.
type Facade struct {
	cfg  config.CacheConfig
	opts *redis.Options
	log  *slog.Logger
	now  func() time.Time

	connect singleflight.Group

	mu       sync.RWMutex
	client   *redis.Client
	failedAt time.Time
}

// NewFacade returns a facade that dials opts on first use.  A nil opts or a
// disabled config yields a facade that is permanently in "no cache" mode.
func NewFacade(cfg config.CacheConfig, opts *redis.Options, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 2 * time.Second
	}
	return &Facade{cfg: cfg, opts: opts, log: logger.With(slog.String("component", "cache")), now: time.Now}
}

// Acquire returns the shared client, connecting if necessary, or nil when
// the cache is unavailable.  It never blocks longer than the connect timeout.
func (f *Facade) Acquire(ctx context.Context) *redis.Client {
	if !f.cfg.Enabled || f.opts == nil {
		return nil
	}
	f.mu.RLock()
	client, failedAt := f.client, f.failedAt
	f.mu.RUnlock()
	if f.coolingDown(failedAt) {
		return nil
	}
	if client != nil {
		return client
	}

	ch := f.connect.DoChan("connect", func() (interface{}, error) { return f.dial() })
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil
		}
		return res.Val.(*redis.Client)
	case <-ctx.Done():
		return nil
	}
}

// dial runs at most once at a time under the singleflight group.
func (f *Facade) dial() (*redis.Client, error) {
	f.mu.RLock()
	existing, failedAt := f.client, f.failedAt
	f.mu.RUnlock()
	if existing != nil {
		return existing, nil
	}
	if f.coolingDown(failedAt) {
		return nil, errors.New("cache cooling down")
	}

	opts := *f.opts
	opts.DialTimeout = f.cfg.ConnectTimeout
	opts.ReadTimeout = f.cfg.OpTimeout
	opts.WriteTimeout = f.cfg.OpTimeout
	opts.MaxRetries = -1
	client := redis.NewClient(&opts)

	// The connect is shared by every waiting caller, so it must not inherit
	// any one caller's context.
	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		f.mu.Lock()
		f.failedAt = f.now()
		f.mu.Unlock()
		f.log.Warn("cache connect failed, continuing without cache",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		return nil, err
	}

	f.mu.Lock()
	f.client = client
	f.failedAt = time.Time{}
	f.mu.Unlock()
	f.log.Info("cache connected", slog.String("addr", opts.Addr))
	return client, nil
}

func (f *Facade) coolingDown(failedAt time.Time) bool {
	return !failedAt.IsZero() && f.now().Sub(failedAt) < f.cfg.RetryAfter
}

// trip records an operational failure so that following calls skip the
// backend until the cool-down has passed.  The client is kept; go-redis
// re-dials inside its pool once the server is back.  An op abandoned because
// the caller's own context ended says nothing about the backend and is not
// recorded.
func (f *Facade) trip(caller context.Context, op, key string, err error) {
	if caller.Err() != nil {
		f.log.Debug("cache operation abandoned by caller",
			slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	f.mu.Lock()
	f.failedAt = f.now()
	f.mu.Unlock()
	f.log.Warn("cache operation failed, continuing without cache",
		slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
}

// Available reports whether a cache handle can be acquired right now.
func (f *Facade) Available(ctx context.Context) bool { return f.Acquire(ctx) != nil }

func (f *Facade) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, f.cfg.OpTimeout)
}

// Get returns the value stored at key.
func (f *Facade) Get(ctx context.Context, key string) ([]byte, Status) {
	client := f.Acquire(ctx)
	if client == nil {
		return nil, Down
	}
	opctx, cancel := f.opContext(ctx)
	defer cancel()
	b, err := client.Get(opctx, key).Bytes()
	switch {
	case err == nil:
		return b, Hit
	case errors.Is(err, redis.Nil):
		return nil, Miss
	default:
		f.trip(ctx, "get", key, err)
		return nil, Down
	}
}

// Set stores val at key with the given ttl.  Failures are logged and dropped.
func (f *Facade) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	client := f.Acquire(ctx)
	if client == nil {
		return
	}
	opctx, cancel := f.opContext(ctx)
	defer cancel()
	if err := client.Set(opctx, key, val, ttl).Err(); err != nil {
		f.trip(ctx, "set", key, err)
	}
}

// Delete removes keys.  Failures are logged and dropped.
func (f *Facade) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	client := f.Acquire(ctx)
	if client == nil {
		return
	}
	opctx, cancel := f.opContext(ctx)
	defer cancel()
	if err := client.Del(opctx, keys...).Err(); err != nil {
		f.trip(ctx, "del", keys[0], err)
	}
}

// IncrementVersion atomically bumps the counter at key and returns the new
// value.  An absent counter reads as 1, so the first increment yields 2 and
// always moves readers off the implicit version.  ok is false when the cache
// is unavailable.
func (f *Facade) IncrementVersion(ctx context.Context, key string) (n int64, ok bool) {
	client := f.Acquire(ctx)
	if client == nil {
		return 0, false
	}
	opctx, cancel := f.opContext(ctx)
	defer cancel()
	var incr *redis.IntCmd
	_, err := client.TxPipelined(opctx, func(p redis.Pipeliner) error {
		p.SetNX(opctx, key, 1, 0)
		incr = p.Incr(opctx, key)
		return nil
	})
	if err != nil {
		f.trip(ctx, "incr", key, err)
		return 0, false
	}
	return incr.Val(), true
}

// Version reads the counter at key, treating an absent key as 1.  ok is
// false when the cache is unavailable.
func (f *Facade) Version(ctx context.Context, key string) (v int64, ok bool) {
	b, st := f.Get(ctx, key)
	switch st {
	case Down:
		return 0, false
	case Miss:
		return 1, true
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil || n < 1 {
		return 1, true
	}
	return n, true
}

// Close releases the shared connection.
func (f *Facade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}
