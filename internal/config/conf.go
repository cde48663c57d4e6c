package config

import "sync"

// Conf is the live configuration of a running backend.
//
// Conf is shared between the shell and the backend, so all methods are safe
// for concurrent use.
type Conf struct {
	mu    sync.RWMutex
	props Properties
}

// NewConf merges overrides over defaults. Neither input is retained.
func NewConf(defaults, overrides Properties) *Conf {
	props := defaults.Clone()
	for k, v := range overrides {
		props[k] = v
	}
	return &Conf{props: props}
}

// Get returns the current value for key.
func (c *Conf) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.props[key]
	return v, ok
}

// GetOr returns the current value for key, or def if the key is unset.
func (c *Conf) GetOr(key, def string) string {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Set updates key at runtime.
func (c *Conf) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.props[key] = value
}

// Keys returns all keys in sorted order.
func (c *Conf) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.props.Keys()
}

// All returns a point-in-time copy of every property.
func (c *Conf) All() Properties {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.props.Clone()
}

// Len returns the number of properties.
func (c *Conf) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.props)
}
