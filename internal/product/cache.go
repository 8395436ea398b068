package product

import (
	"sync"
)

// Cache holds decoded definitions by version so that formulas are parsed
// and the reverse graph is built once per definition version, not once per
// request.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*Definition
	order   []string // insertion order, oldest first
}

// NewCache returns a cache holding at most max definitions. max <= 0 means
// 64.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = 64
	}
	return &Cache{max: max, entries: make(map[string]*Definition)}
}

// Get returns the definition for version, calling load on a miss.
func (c *Cache) Get(version string, load func() (*Definition, error)) (*Definition, error) {
	c.mu.Lock()
	if d, ok := c.entries[version]; ok {
		c.mu.Unlock()
		return d, nil
	}
	c.mu.Unlock()

	d, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[version]; ok {
		return existing, nil
	}
	c.entries[version] = d
	c.order = append(c.order, version)
	for len(c.order) > c.max {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	return d, nil
}

// Invalidate drops version from the cache.
func (c *Cache) Invalidate(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[version]; !ok {
		return
	}
	delete(c.entries, version)
	for i, v := range c.order {
		if v == version {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of cached definitions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
