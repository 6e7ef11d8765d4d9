package crop

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agronix/logging"
)

// DefaultTTL is how long a cached snapshot stays fresh.
const DefaultTTL = 300 * time.Second

// CacheOptions configure a Cache.
type CacheOptions struct {
	TTL      time.Duration
	Now      func() time.Time
	Logger   logging.Logger
	Fallback Provider // used when the primary provider fails; never cached
}

// Cache keeps one snapshot per user for TTL. Each user has an independent
// entry lock; the map lock is held only to find or create entries.
type Cache struct {
	provider Provider
	opts     CacheOptions

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	mu        sync.Mutex
	snapshot  Snapshot
	expiresAt time.Time
	valid     bool
}

// NewCache wraps provider with a per-user TTL cache.
func NewCache(provider Provider, optFns ...func(o *CacheOptions)) *Cache {
	opts := CacheOptions{TTL: DefaultTTL, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Fallback == nil {
		opts.Fallback = NewSimulatedProvider(func(o *SimulatedOptions) { o.Now = opts.Now })
	}

	return &Cache{provider: provider, opts: opts, entries: make(map[string]*cacheEntry)}
}

func (c *Cache) entry(userID string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[userID]
	if !ok {
		e = &cacheEntry{}
		c.entries[userID] = e
	}
	return e
}

// Get returns the user's snapshot, producing a new one on miss or expiry.
// Provider failures yield an uncached fallback snapshot.
func (c *Cache) Get(ctx context.Context, userID string) Snapshot {
	e := c.entry(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := c.opts.Now()
	if e.valid && now.Before(e.expiresAt) {
		c.opts.Logger.Debug("crop.cache.hit", "user_id", userID)
		return e.snapshot
	}

	snap, err := c.provider.Produce(ctx, userID)
	if err != nil {
		c.opts.Logger.Warn("crop.provider.failed", "user_id", userID, "error", err.Error())

		fallback, ferr := c.opts.Fallback.Produce(ctx, userID)
		if ferr != nil {
			c.opts.Logger.Error("crop.fallback.failed", "user_id", userID, "error", ferr.Error())
		}
		return fallback
	}

	e.snapshot = snap
	e.expiresAt = now.Add(c.opts.TTL)
	e.valid = true

	c.opts.Logger.Debug("crop.cache.refreshed", "user_id", userID, "expires_at", e.expiresAt)

	return snap
}

// Invalidate expires the user's cached snapshot.
func (c *Cache) Invalidate(userID string) {
	e := c.entry(userID)

	e.mu.Lock()
	e.valid = false
	e.mu.Unlock()
}

// Refresh invalidates then reloads the user's snapshot.
func (c *Cache) Refresh(ctx context.Context, userID string) Snapshot {
	c.Invalidate(userID)
	return c.Get(ctx, userID)
}
