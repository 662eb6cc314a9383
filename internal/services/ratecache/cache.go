// Package ratecache keeps fetched rate tables per base currency for a freshness window.
package ratecache

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/fxconv/internal/domain"
)

// Cache in-memory rate tables keyed by base currency.
// Stale entries stay in the map until overwritten but are never returned.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]domain.RateSet
}

// Option defines a function to configure the Cache.
type Option func(*Cache)

// WithTTL sets the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// New creates an empty cache with domain.CacheDuration as freshness window.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:     domain.CacheDuration,
		entries: make(map[string]domain.RateSet),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the rate table for base if it was stored less than ttl before now.
func (c *Cache) Get(base string, now time.Time) (domain.RateSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set, ok := c.entries[base]
	if !ok || !set.FreshAt(now, c.ttl) {
		return domain.RateSet{}, false
	}
	return set, true
}

// Put stores rates for base, replacing any previous entry.
// The last write wins even when its now is older than the stored FetchedAt.
func (c *Cache) Put(base string, rates map[string]decimal.Decimal, now time.Time) {
	copied := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[base] = domain.RateSet{Base: base, Rates: copied, FetchedAt: now}
}

// Len number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
