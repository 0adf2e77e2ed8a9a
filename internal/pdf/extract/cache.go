package extract

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// DocumentCache is a thread-safe LRU of extracted documents
type DocumentCache struct {
	mutex    sync.Mutex
	capacity int
	items    map[string]*cacheNode
	head     *cacheNode // Most recently used
	tail     *cacheNode // Least recently used
	hits     int64
	misses   int64
}

type cacheNode struct {
	key  string
	doc  *Document
	prev *cacheNode
	next *cacheNode
}

// CacheStats provides statistics about cache performance
type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate_percent"`
	Size     int     `json:"current_size"`
	Capacity int     `json:"max_capacity"`
}

// NewDocumentCache creates a cache holding at most capacity documents
func NewDocumentCache(capacity int) *DocumentCache {
	if capacity <= 0 {
		capacity = 32
	}

	c := &DocumentCache{
		capacity: capacity,
		items:    make(map[string]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns a cached document and marks it as recently used
func (c *DocumentCache) Get(key string) (*Document, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		c.unlink(node)
		c.pushFront(node)
		c.hits++
		return node.doc, true
	}
	c.misses++
	return nil, false
}

// Put stores a document, evicting the least recently used one when full
func (c *DocumentCache) Put(key string, doc *Document) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		node.doc = doc
		c.unlink(node)
		c.pushFront(node)
		return
	}

	node := &cacheNode{key: key, doc: doc}
	c.pushFront(node)
	c.items[key] = node

	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.unlink(lru)
		delete(c.items, lru.key)
	}
}

// Len returns the number of cached documents
func (c *DocumentCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}

// Stats returns cache statistics
func (c *DocumentCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  hitRate,
		Size:     len(c.items),
		Capacity: c.capacity,
	}
}

func (c *DocumentCache) pushFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *DocumentCache) unlink(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

// CachingExtractor memoizes another Extractor. Entries are keyed by path,
// size and modification time so an edited file is extracted again.
type CachingExtractor struct {
	next  Extractor
	cache *DocumentCache
}

// NewCachingExtractor wraps next with a cache of the given capacity
func NewCachingExtractor(next Extractor, capacity int) *CachingExtractor {
	return &CachingExtractor{next: next, cache: NewDocumentCache(capacity)}
}

// Extract returns the cached document or extracts and caches it.
// Cached documents are shared: callers must not modify them.
func (e *CachingExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())

	if doc, ok := e.cache.Get(key); ok {
		return doc, nil
	}

	doc, err := e.next.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	e.cache.Put(key, doc)
	return doc, nil
}

// Stats exposes the underlying cache statistics
func (e *CachingExtractor) Stats() CacheStats {
	return e.cache.Stats()
}
