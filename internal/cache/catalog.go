package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"
)

// Catalog key namespace.  No other package builds these strings.
const (
	VersionKey   = "products:version"
	listBase     = "products:all"
	itemPrefix   = "product:"
	searchPrefix = "products:search:"
)

// Backend is the subset of the Facade the coordinator needs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, Status)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
	Version(ctx context.Context, key string) (int64, bool)
	IncrementVersion(ctx context.Context, key string) (int64, bool)
}

// Catalog makes catalog reads cacheable while keeping invalidation a single
// counter increment.  Every cached read lives under "<base>:v<version>";
// bumping the version orphans all of them at once and they age out by TTL.
type Catalog struct {
	backend Backend
	ttl     time.Duration

	// pending is set when an invalidation could not reach the backend.  The
	// next reader that reaches it bumps the version before resolving keys.
	pending atomic.Bool
}

func NewCatalog(b Backend, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Catalog{backend: b, ttl: ttl}
}

// Slot is a resolved cache location.  A slot that is not Usable was built
// while the cache was down and must not be read or written.
type Slot struct {
	Key    string
	Usable bool
}

func ListKey() string          { return listBase }
func ItemKey(id string) string { return itemPrefix + id }

// SearchKey hashes the canonical form of the query parameters, so the same
// filters in any order share one entry.
func SearchKey(params url.Values) string {
	sum := sha1.Sum([]byte(params.Encode()))
	return fmt.Sprintf("%s%x", searchPrefix, sum[:])
}

// VersionedKey resolves the current catalog version and qualifies base with
// it.  When the cache is unavailable it degrades to the bare base key and
// reports false.
func (c *Catalog) VersionedKey(ctx context.Context, base string) (string, bool) {
	var (
		v  int64
		ok bool
	)
	if c.pending.Load() {
		if v, ok = c.backend.IncrementVersion(ctx, VersionKey); ok {
			c.pending.Store(false)
		}
	} else {
		v, ok = c.backend.Version(ctx, VersionKey)
	}
	if !ok {
		return base, false
	}
	return base + ":v" + strconv.FormatInt(v, 10), true
}

// Lookup resolves base to a slot and decodes a cached value into dst.  hit
// is true only when dst was filled.  A corrupt entry counts as a miss.
func (c *Catalog) Lookup(ctx context.Context, base string, dst any) (slot Slot, hit bool) {
	key, ok := c.VersionedKey(ctx, base)
	slot = Slot{Key: key, Usable: ok}
	if !ok {
		return slot, false
	}
	b, st := c.backend.Get(ctx, key)
	if st != Hit {
		return slot, false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return slot, false
	}
	return slot, true
}

// Store writes v under slot.  Unusable slots and encoding failures are
// ignored.
func (c *Catalog) Store(ctx context.Context, slot Slot, v any) {
	if !slot.Usable {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.backend.Set(ctx, slot.Key, b, c.ttl)
}

// Invalidate bumps the catalog version.  It must run after the write it
// guards has committed.  It returns the new version, or false when the cache
// is unavailable, in which case the bump is retried by the next reader.
func (c *Catalog) Invalidate(ctx context.Context) (int64, bool) {
	v, ok := c.backend.IncrementVersion(ctx, VersionKey)
	if !ok {
		c.pending.Store(true)
		return 0, false
	}
	c.pending.Store(false)
	return v, true
}
