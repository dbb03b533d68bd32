package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache is a least-recently-used cache of query and chunk embeddings keyed by text.
// Stored and returned vectors are copies, so callers may modify what they get.
type EmbeddingCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
	hits     uint64
	misses   uint64
	mu       sync.Mutex
}

type cacheItem struct {
	text   string
	vector []float32
}

// NewEmbeddingCache creates a cache holding up to capacity vectors. A capacity <= 0 disables caching.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns a copy of the embedding cached for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return append([]float32(nil), elem.Value.(*cacheItem).vector...), true
}

// Set caches vector for text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	if c.capacity <= 0 {
		return
	}
	v := append([]float32(nil), vector...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[text]; ok {
		elem.Value.(*cacheItem).vector = v
		c.order.MoveToFront(elem)
		return
	}
	c.entries[text] = c.order.PushFront(&cacheItem{text: text, vector: v})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheItem).text)
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the number of Get calls that hit and missed.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
