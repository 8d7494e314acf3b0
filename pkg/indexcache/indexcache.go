package indexcache

import (
	"github.com/dmitrymomot/rtkit/pkg/cache"
)

// DefaultCapacity bounds the number of collections remembered by default.
const DefaultCapacity = 1024

// Cache remembers the set of known collections. Safe for concurrent use.
type Cache struct {
	known *cache.LRU[string, struct{}]
}

// New creates a cache remembering at most capacity collections; a
// non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{known: cache.NewLRU[string, struct{}](capacity)}
}

// Add records a collection as existing. Returns true when the collection was
// not previously known; repeated calls return false and have no effect.
func (c *Cache) Add(collection string) bool {
	if collection == "" {
		return false
	}
	_, existed := c.known.Put(collection, struct{}{})
	return !existed
}

// Exists reports whether the collection is currently known.
func (c *Cache) Exists(collection string) bool {
	_, ok := c.known.Get(collection)
	return ok
}

// Remove forgets a collection, for example after it is dropped.
func (c *Cache) Remove(collection string) {
	c.known.Remove(collection)
}

// Len reports how many collections are currently tracked.
func (c *Cache) Len() int {
	return c.known.Len()
}
