package modindex

import (
	"pyscope/internal/engine/symbols"
)

const DefaultCacheSize = 512

type cachedAnswer struct {
	exports []string
	err     error
}

// Cached memoises another introspector's answers, unavailability included,
// in a bounded LRU. Returned export slices are copies.
type Cached struct {
	next  symbols.Introspector
	cache *lruCache[string, cachedAnswer]
}

func NewCached(next symbols.Introspector, size int) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cached{next: next, cache: newLRUCache[string, cachedAnswer](size)}
}

func (c *Cached) Exports(module string) ([]string, error) {
	if ans, ok := c.cache.get(module); ok {
		return append([]string(nil), ans.exports...), ans.err
	}
	exports, err := c.next.Exports(module)
	c.cache.put(module, cachedAnswer{exports: append([]string(nil), exports...), err: err})
	return exports, err
}

// Invalidate forgets the cached answer for module, e.g. after the index it
// wraps learned new exports.
func (c *Cached) Invalidate(module string) {
	c.cache.evict(module)
}

func (c *Cached) Purge() {
	c.cache.clear()
}

func (c *Cached) Len() int {
	return c.cache.len()
}
