package resolve

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jward/deadwood/internal/analysis"
)

// DefaultCacheSize bounds the number of memoized resolutions.
const DefaultCacheSize = 8192

type cacheKey struct {
	spec string
	dir  string
	kind analysis.RefKind
}

// Cache memoizes another resolver. Outcomes depend only on the specifier,
// the importing directory and the reference kind, so modules in the same
// directory share entries. Safe for concurrent use.
type Cache struct {
	next    analysis.Resolver
	entries *lru.Cache[cacheKey, analysis.Resolution]
}

// NewCache wraps next with an LRU cache holding at most size entries.
func NewCache(next analysis.Resolver, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[cacheKey, analysis.Resolution](size)
	if err != nil {
		return nil, fmt.Errorf("creating resolution cache: %w", err)
	}
	return &Cache{next: next, entries: entries}, nil
}

func (c *Cache) Resolve(spec string, from analysis.ModuleID, kind analysis.RefKind) analysis.Resolution {
	key := cacheKey{spec: spec, dir: from.Dir(), kind: kind}
	if res, ok := c.entries.Get(key); ok {
		return res
	}
	res := c.next.Resolve(spec, from, kind)
	c.entries.Add(key, res)
	return res
}

// Len returns the number of cached outcomes.
func (c *Cache) Len() int {
	return c.entries.Len()
}
