package cache

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestCatalogVersionedKeyDefaultsToOne(t *testing.T) {
	f, _ := newTestFacade(t)
	c := NewCatalog(f, time.Minute)

	key, ok := c.VersionedKey(context.Background(), ListKey())
	require.True(t, ok)
	assert.Equal(t, "products:all:v1", key)

	key, ok = c.VersionedKey(context.Background(), ItemKey("42"))
	require.True(t, ok)
	assert.Equal(t, "product:42:v1", key)
}

func TestCatalogInvalidateOrphansPreviousEntries(t *testing.T) {
	f, mr := newTestFacade(t)
	c := NewCatalog(f, time.Minute)
	ctx := context.Background()

	var got item
	slot, hit := c.Lookup(ctx, ListKey(), &got)
	require.False(t, hit)
	require.True(t, slot.Usable)
	c.Store(ctx, slot, item{Name: "lamp"})

	slot, hit = c.Lookup(ctx, ListKey(), &got)
	require.True(t, hit)
	assert.Equal(t, "lamp", got.Name)
	before := slot.Key

	v, ok := c.Invalidate(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(2), v)

	got = item{}
	slot, hit = c.Lookup(ctx, ListKey(), &got)
	assert.False(t, hit)
	assert.NotEqual(t, before, slot.Key)
	assert.Empty(t, got.Name)
	assert.True(t, mr.Exists(before), "old entry is orphaned, not deleted")
}

func TestCatalogInvalidateTwice(t *testing.T) {
	f, _ := newTestFacade(t)
	c := NewCatalog(f, time.Minute)
	ctx := context.Background()

	v1, ok := c.Invalidate(ctx)
	require.True(t, ok)
	v2, ok := c.Invalidate(ctx)
	require.True(t, ok)
	assert.Equal(t, v1+1, v2)

	key, _ := c.VersionedKey(ctx, ListKey())
	assert.Equal(t, "products:all:v3", key)
}

func TestCatalogConcurrentInvalidateIsMonotonic(t *testing.T) {
	f, _ := newTestFacade(t)
	c := NewCatalog(f, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Invalidate(ctx)
		}()
	}
	wg.Wait()

	v, ok := f.Version(ctx, VersionKey)
	require.True(t, ok)
	assert.Equal(t, int64(21), v)
}

func TestCatalogDegradesWhenCacheDown(t *testing.T) {
	c := NewCatalog(deadFacade(t), time.Minute)
	ctx := context.Background()

	key, ok := c.VersionedKey(ctx, ListKey())
	assert.False(t, ok)
	assert.Equal(t, "products:all", key)

	var got item
	slot, hit := c.Lookup(ctx, ListKey(), &got)
	assert.False(t, hit)
	assert.False(t, slot.Usable)
	c.Store(ctx, slot, item{Name: "ignored"})

	_, ok = c.Invalidate(ctx)
	assert.False(t, ok)
}

// flakyBackend is an in-memory Backend that can be switched off.
type flakyBackend struct {
	mu      sync.Mutex
	down    bool
	version int64
	data    map[string][]byte
}

func newFlaky() *flakyBackend { return &flakyBackend{data: map[string][]byte{}} }

func (b *flakyBackend) Get(_ context.Context, key string) ([]byte, Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down {
		return nil, Down
	}
	v, ok := b.data[key]
	if !ok {
		return nil, Miss
	}
	return v, Hit
}

func (b *flakyBackend) Set(_ context.Context, key string, val []byte, _ time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.down {
		b.data[key] = val
	}
}

func (b *flakyBackend) Version(context.Context, string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down {
		return 0, false
	}
	if b.version == 0 {
		return 1, true
	}
	return b.version, true
}

func (b *flakyBackend) IncrementVersion(context.Context, string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down {
		return 0, false
	}
	if b.version == 0 {
		b.version = 1
	}
	b.version++
	return b.version, true
}

func TestCatalogReplaysInvalidationMissedDuringOutage(t *testing.T) {
	b := newFlaky()
	c := NewCatalog(b, time.Minute)
	ctx := context.Background()

	slot, _ := c.Lookup(ctx, ListKey(), &item{})
	c.Store(ctx, slot, item{Name: "stale"})

	b.down = true
	_, ok := c.Invalidate(ctx)
	require.False(t, ok)
	b.down = false

	var got item
	_, hit := c.Lookup(ctx, ListKey(), &got)
	assert.False(t, hit, "entry cached before the missed invalidation must not be served")

	key, ok := c.VersionedKey(ctx, ListKey())
	require.True(t, ok)
	assert.Equal(t, "products:all:v2", key, "the replay bumps exactly once")
}

func TestSearchKeyIsCanonical(t *testing.T) {
	a := url.Values{}
	a.Set("category", "lamps")
	a.Set("minPrice", "10")
	b := url.Values{}
	b.Set("minPrice", "10")
	b.Set("category", "lamps")

	assert.Equal(t, SearchKey(a), SearchKey(b))
	assert.Contains(t, SearchKey(a), "products:search:")

	b.Set("page", "2")
	assert.NotEqual(t, SearchKey(a), SearchKey(b))
}
