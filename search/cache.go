package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cacheSize bounds the LRU defensively; expiry does the real eviction since
// the key space of repeated identical requests is small and short-lived.
const cacheSize = 256

// Cache is the short-lived result cache shielding sources from redundant
// rapid repeat queries. Only server-style callers use it; the CLI always
// goes live or fully offline.
type Cache struct {
	lru *expirable.LRU[string, *models.SearchResult]
	ttl time.Duration
}

// NewCache builds a cache with the configured freshness window.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		lru: expirable.NewLRU[string, *models.SearchResult](cacheSize, nil, ttl),
		ttl: ttl,
	}
}

// Key normalizes a request into its cache identity: term, sorted sources,
// and price bounds. Offline and no-save flags never reach the cache path.
func Key(req models.SearchRequest) string {
	sources := make([]string, 0, len(req.Sources))
	for _, s := range req.Sources {
		sources = append(sources, strings.ToLower(strings.TrimSpace(s)))
	}
	sort.Strings(sources)

	min, max := "-", "-"
	if req.MinPrice != nil {
		min = fmt.Sprintf("%.2f", *req.MinPrice)
	}
	if req.MaxPrice != nil {
		max = fmt.Sprintf("%.2f", *req.MaxPrice)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		strings.ToLower(req.Query), req.ISBN, strings.Join(sources, ","), min, max, req.MaxPerSource)
}

func (c *Cache) get(key string) (*models.SearchResult, bool) {
	return c.lru.Get(key)
}

func (c *Cache) set(key string, result *models.SearchResult) {
	c.lru.Add(key, result)
}

// CachedSearch returns a fresh-enough previous result for an identical
// request, or runs a live search and remembers it. Intended for web-facing
// callers that see repeated identical requests in quick succession.
func (e *Engine) CachedSearch(ctx context.Context, req models.SearchRequest) (*models.SearchResult, bool, error) {
	if req.Offline {
		result, err := e.Search(ctx, req)
		return result, false, err
	}

	key := Key(req)
	if result, ok := e.cache.get(key); ok {
		e.Metrics.IncCacheHit()
		return result, true, nil
	}

	result, err := e.Search(ctx, req)
	if err != nil {
		return nil, false, err
	}
	e.cache.set(key, result)
	return result, false, nil
}
