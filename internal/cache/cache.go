// Package cache implements the two-tier TTL cache of §4.4: a symbol cache
// (key = symbol, value = Analysis) and a query cache (key = canonicalized
// Filter, value = FilterResult), each its own instance so evicting one never
// touches the other.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"marketanalysis/internal/models"
)

// Cache is the engine's two-tier cache.
type Cache struct {
	symbols *gocache.Cache
	queries *gocache.Cache
}

// New builds a Cache with the given TTL for both tiers. The cleanup interval
// is twice the TTL, mirroring the ratio the corpus uses for this library.
func New(ttl time.Duration) *Cache {
	return &Cache{
		symbols: gocache.New(ttl, 2*ttl),
		queries: gocache.New(ttl, 2*ttl),
	}
}

// PutSymbol refreshes the symbol cache entry for a.Symbol. Called on every
// successful upsert.
func (c *Cache) PutSymbol(a models.Analysis) {
	c.symbols.Set(a.Symbol, a, gocache.DefaultExpiration)
}

// GetSymbol returns the cached Analysis for symbol, if present and unexpired.
func (c *Cache) GetSymbol(symbol string) (models.Analysis, bool) {
	v, ok := c.symbols.Get(symbol)
	if !ok {
		return models.Analysis{}, false
	}
	return v.(models.Analysis), true
}

// WarmSymbols seeds the symbol cache from a store snapshot at process start.
func (c *Cache) WarmSymbols(all []models.Analysis) {
	for _, a := range all {
		c.PutSymbol(a)
	}
}

// PutQuery caches a materialized filter result under key.
func (c *Cache) PutQuery(key string, result models.FilterResult) {
	c.queries.Set(key, result, gocache.DefaultExpiration)
}

// GetQuery returns the cached filter result for key, if present and
// unexpired.
func (c *Cache) GetQuery(key string) (models.FilterResult, bool) {
	v, ok := c.queries.Get(key)
	if !ok {
		return models.FilterResult{}, false
	}
	return v.(models.FilterResult), true
}

// InvalidateQueries unconditionally evicts every query-cache entry. Called
// when the scheduler enters SETTLING at the end of a cycle.
func (c *Cache) InvalidateQueries() {
	c.queries.Flush()
}
