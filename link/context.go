package link

import "sync"

// Context is per-instance mutable state shared by host implementations.
// One Context is created per instantiation and handed to every HostFunc
// bound to that instance, so host-side state survives across guest calls
// without globals. Safe for concurrent use.
type Context struct {
	mu     sync.RWMutex
	values map[string]any
}

func newContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Delete removes key.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
}
