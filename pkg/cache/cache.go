package cache

import "time"

// Cache is the memory layer's context cache. Implementations may
// evict or reject entries at will, so callers always need a backing
// store behind a miss.
type Cache interface {
	// Get retrieves a value. The second return reports whether the
	// key was present.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL. A false return means the entry
	// was not admitted.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value.
	Delete(key string)

	// Clear drops every cached value.
	Clear()

	// Close releases the cache's resources.
	Close()
}
