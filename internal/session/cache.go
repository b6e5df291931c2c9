package session

import "sync"

// bucketCache memoizes classifier output per topic id. Entries are
// content-addressed and idempotent to recompute, so concurrent runs racing
// to populate the same key is benign; the last write is equivalent to any
// other.
type bucketCache struct {
	mu sync.RWMutex
	m  map[int64][]string
}

func newBucketCache() *bucketCache {
	return &bucketCache{m: make(map[int64][]string)}
}

func (c *bucketCache) get(id int64) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	buckets, ok := c.m[id]
	return buckets, ok
}

func (c *bucketCache) set(id int64, buckets []string) {
	c.mu.Lock()
	c.m[id] = buckets
	c.mu.Unlock()
}
