// Package indexcache tracks which collections are known to exist so that
// the write router can register newly created collections exactly once.
//
// Registration is idempotent: Add reports whether the collection was newly
// recorded, and repeated calls for the same collection are cheap no-ops.
// The cache is LRU-bounded; an evicted collection is simply re-registered
// on its next appearance, which is safe because registration side effects
// are themselves idempotent.
package indexcache
