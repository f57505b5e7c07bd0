package artifact

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/clinmap/clinmap-go/internal/training"
)

// Cache keeps loaded models in memory keyed by artifact path. Artifacts are
// write-once, so a cached entry never goes stale; expiry only bounds memory
// held for models no predict/validate call touches anymore.
type Cache struct {
	c *cache.Cache
}

// NewCache creates a model cache with the given idle expiry.
func NewCache(expiry time.Duration) *Cache {
	return &Cache{c: cache.New(expiry, 2*expiry)}
}

// Get returns the cached model for an artifact path.
func (mc *Cache) Get(path string) (*training.Model, bool) {
	v, ok := mc.c.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*training.Model), true
}

// Put caches a loaded model under its artifact path.
func (mc *Cache) Put(path string, m *training.Model) {
	mc.c.SetDefault(path, m)
}
