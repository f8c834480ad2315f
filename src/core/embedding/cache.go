package embedding

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 10000

// Cache keeps recently computed vectors keyed by a hash of provider name and clipped text.
type Cache struct {
	entries *lru.Cache[string, []float32]
}

// NewCache creates an LRU cache holding at most size vectors.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, []float32](size)
	if err != nil {
		entries, _ = lru.New[string, []float32](DefaultCacheSize)
	}
	return &Cache{entries: entries}
}

// Get returns a copy of the cached vector so callers cannot mutate the cache.
func (c *Cache) Get(key string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return cloneVector(v), true
}

func (c *Cache) Set(key string, v []float32) {
	if c == nil {
		return
	}
	c.entries.Add(key, cloneVector(v))
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func cacheKey(provider, text string) string {
	h := sha256.Sum256([]byte(provider + "\x00" + text))
	return hex.EncodeToString(h[:])
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
