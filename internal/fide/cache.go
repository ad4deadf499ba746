package fide

import (
	"context"
	"sync"
)

// CacheStats reports PageCache usage
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// PageCache memoizes successful fetches by URL. Entries never expire; they
// live until Purge is called or the process exits. Failed fetches are not
// cached.
type PageCache struct {
	next Fetcher

	mu     sync.RWMutex
	pages  map[string]string
	hits   int64
	misses int64
}

// NewPageCache wraps next with an in-memory cache
func NewPageCache(next Fetcher) *PageCache {
	return &PageCache{
		next:  next,
		pages: make(map[string]string),
	}
}

// Fetch returns the cached page or fetches and stores it
func (c *PageCache) Fetch(ctx context.Context, pageURL string) (string, error) {
	c.mu.Lock()
	page, ok := c.pages[pageURL]
	if ok {
		c.hits++
		c.mu.Unlock()
		return page, nil
	}
	c.misses++
	c.mu.Unlock()

	page, err := c.next.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.pages[pageURL] = page
	c.mu.Unlock()
	return page, nil
}

// Purge drops every cached page
func (c *PageCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[string]string)
}

// Stats returns a snapshot of cache usage
func (c *PageCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Entries: len(c.pages), Hits: c.hits, Misses: c.misses}
}
