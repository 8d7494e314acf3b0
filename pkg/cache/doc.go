// Package cache provides a generic, thread-safe LRU cache.
//
// When the cache reaches its capacity the least recently used entry is
// evicted; an optional eviction callback allows cleanup of evicted values.
// All operations are O(1) and safe for concurrent use.
//
//	c := cache.NewLRU[string, struct{}](1024)
//	c.Put("users", struct{}{})
//	_, known := c.Get("users")
//
// The realtime engine uses it to back the index cache that tracks which
// collections exist.
package cache
