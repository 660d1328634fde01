package filestore

import (
	"sync"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/domain"
)

// CachedReader wraps a DatasetStore with an in-memory LRU of loaded
// datasets. An entry is served only while the artifact's modification time
// is unchanged, so a rebuild is picked up on the next read.
type CachedReader struct {
	store *DatasetStore
	cache *lruCache
}

// NewCachedReader creates a cache decorator around a dataset store.
func NewCachedReader(store *DatasetStore, maxEntries int) *CachedReader {
	return &CachedReader{
		store: store,
		cache: newLRUCache(maxEntries),
	}
}

// Read returns the player's dataset, loading it from disk on a miss or when
// the artifact changed since it was cached.
func (c *CachedReader) Read(player string) (domain.Dataset, error) {
	modTime, err := c.store.ModTime(player)
	if err != nil {
		c.cache.delete(player)
		return domain.Dataset{}, err
	}
	if v, ok := c.cache.get(player); ok && v.modTime.Equal(modTime) {
		return v.dataset, nil
	}

	d, err := c.store.Read(player)
	if err != nil {
		c.cache.delete(player)
		return domain.Dataset{}, err
	}
	c.cache.put(player, cachedDataset{modTime: modTime, dataset: d})
	return d, nil
}

type cachedDataset struct {
	modTime time.Time
	dataset domain.Dataset
}

// lruCache is a simple thread-safe LRU cache of loaded datasets.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value cachedDataset
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (cachedDataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return cachedDataset{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value cachedDataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
