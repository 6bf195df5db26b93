package view

import (
	"context"
	"sync"
)

// executable is a compiled template of any syntax.
type executable interface {
	Execute(ctx context.Context, data map[string]any) (string, error)
}

// entry is an immutable cache value; updates replace the whole entry.
type entry struct {
	tmpl  executable
	token string
}

// Cache maps template names to compiled templates. It is unbounded and safe
// for concurrent use; concurrent stores for the same name are resolved by
// the last writer.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

func (c *Cache) get(name string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	return e, ok
}

func (c *Cache) put(name string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[name] = e
}

// Remove drops the compiled template for name.
func (c *Cache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, name)
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
