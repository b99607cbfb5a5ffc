// Package lookup caches reverse lookups (owner address to primary name).
//
// Entries are resolved at most once per address for the lifetime of the cache.
// Explicit misses are cached; failures are not, so a failed address can be
// resolved again on the next call. Concurrent callers for the same address
// share one remote lookup.
package lookup

import (
	"context"
	"sync"
	"time"

	"domain-manager/core/metrics"
	"domain-manager/core/names"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resolver performs remote reverse lookups.
type Resolver interface {
	ReverseLookup(ctx context.Context, addr names.Address) (names.EntityID, bool, error)
}

// Entry is a resolved reverse lookup. Found is false for an explicit miss.
type Entry struct {
	Address    names.Address  `json:"address"`
	Name       names.EntityID `json:"name,omitempty"`
	Found      bool           `json:"found"`
	ResolvedAt time.Time      `json:"resolved_at"`
}

// Cache is a write-once reverse lookup cache.
type Cache struct {
	resolver Resolver
	logger   *zap.Logger
	metrics  *metrics.Metrics
	onChange func(names.Address)

	mu      sync.RWMutex
	entries map[names.Address]Entry
	sf      singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithOnChange registers a callback invoked after a new entry is stored.
func WithOnChange(fn func(names.Address)) Option {
	return func(c *Cache) {
		c.onChange = fn
	}
}

// NewCache creates a cache resolving through r.
func NewCache(r Resolver, opts ...Option) *Cache {
	c := &Cache{
		resolver: r,
		logger:   zap.NewNop(),
		entries:  make(map[names.Address]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns a cached entry without resolving.
func (c *Cache) Peek(addr names.Address) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[names.NormalizeAddress(string(addr))]
	return e, ok
}

// Resolve returns the cached entry for addr, or resolves it remotely.
// The remote call is shared by all concurrent callers for the same address and
// is not cancelled when one caller gives up.
func (c *Cache) Resolve(ctx context.Context, addr names.Address) (Entry, error) {
	key := names.NormalizeAddress(string(addr))
	if key == "" {
		return Entry{}, names.ErrInvalidAccount
	}

	if e, ok := c.Peek(key); ok {
		c.metrics.IncLookupHit()
		return e, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(string(key), func() (interface{}, error) {
		// Double-check after winning the flight
		if e, ok := c.Peek(key); ok {
			return e, nil
		}

		c.metrics.IncLookupRemote()
		name, found, err := c.resolver.ReverseLookup(detached, key)
		if err != nil {
			c.metrics.IncLookupFailure()
			c.logger.Warn("Reverse lookup failed",
				zap.String("address", string(key)),
				zap.String("kind", string(names.KindOf(err))),
				zap.Error(err),
			)
			return nil, err
		}
		return c.store(Entry{Address: key, Name: name, Found: found, ResolvedAt: time.Now()}), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		return res.Val.(Entry), nil
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
}

// store keeps the first entry for an address and returns the stored one.
func (c *Cache) store(e Entry) Entry {
	c.mu.Lock()
	if existing, ok := c.entries[e.Address]; ok {
		c.mu.Unlock()
		return existing
	}
	c.entries[e.Address] = e
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(e.Address)
	}
	return e
}

// Snapshot copies every cached entry.
func (c *Cache) Snapshot() map[names.Address]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[names.Address]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
