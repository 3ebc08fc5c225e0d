// Package licensecache implements the get-or-insert license cache shared by
// every ecosystem scanner within one scan invocation (spec I2, §4.2): the
// first scanner to request a key's license runs the compute closure; every
// concurrent or later caller for the same key observes that single result.
//
// The cache is deliberately scoped to one scan: it is constructed fresh per
// invocation and discarded when the scan returns, so there is no eviction or
// persistence policy to get wrong.
package licensecache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cboyd0319/bazbom"
)

// Key identifies a license cache entry by package coordinate.
type Key struct {
	Ecosystem bazbom.Ecosystem
	Name      string
	Version   string
}

func (k Key) String() string {
	return string(k.Ecosystem) + "|" + k.Name + "|" + k.Version
}

// ComputeFunc resolves a License for a coordinate by reading on-disk
// metadata (a node_modules package.json, a JAR's META-INF, and so on). It
// runs at most once per key even under concurrent callers.
type ComputeFunc func(ctx context.Context) (*bazbom.License, error)

// Cache is a concurrency-safe get-or-insert map from coordinate to License.
// No global mutex is held across a ComputeFunc call: singleflight.Group
// deduplicates concurrent callers for the same key while unrelated keys
// proceed independently.
type Cache struct {
	g     singleflight.Group
	mu    sync.RWMutex // guards store only; never held across a ComputeFunc call
	store map[string]*bazbom.License
}

// New creates an empty Cache, scoped to a single scan invocation.
func New() *Cache {
	return &Cache{store: make(map[string]*bazbom.License)}
}

// GetOrInsert returns the cached License for key if already known;
// otherwise it calls fn exactly once (even if called concurrently by
// several scanners for the same key) and caches the result.
func (c *Cache) GetOrInsert(ctx context.Context, key Key, fn ComputeFunc) (*bazbom.License, error) {
	k := key.String()

	c.mu.RLock()
	l, ok := c.store[k]
	c.mu.RUnlock()
	if ok {
		return l, nil
	}

	v, err, _ := c.g.Do(k, func() (interface{}, error) {
		// A Do call for k may have finished and stored its result between
		// the read above and this call; reuse it instead of recomputing.
		c.mu.RLock()
		l, ok := c.store[k]
		c.mu.RUnlock()
		if ok {
			return l, nil
		}
		l, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.store[k] = l
		c.mu.Unlock()
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*bazbom.License), nil
}

// Len reports the number of distinct keys resolved so far. Exposed for
// tests verifying write-once-per-key semantics (I2).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
