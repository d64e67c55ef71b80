package embedding

import (
	"container/list"
	"crypto/sha256"
	"sync"
)

// textKey hashes a text so the cache never holds full chunk contents.
func textKey(text string) [32]byte {
	return sha256.Sum256([]byte(text))
}

type cacheEntry struct {
	key [32]byte
	vec []float32
}

// lruCache is a size-capped embedding cache with least-recently-used
// discard. Process-local; no persistence.
type lruCache struct {
	mu    sync.Mutex
	cap   int
	order *list.List // front = most recent
	items map[[32]byte]*list.Element
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		cap:   capacity,
		order: list.New(),
		items: make(map[[32]byte]*list.Element, capacity),
	}
}

func (c *lruCache) get(key [32]byte) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(cacheEntry).vec, true
}

func (c *lruCache) put(key [32]byte, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value = cacheEntry{key: key, vec: vec}
		return
	}

	c.items[key] = c.order.PushFront(cacheEntry{key: key, vec: vec})
	if c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(cacheEntry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
