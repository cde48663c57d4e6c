// Package config holds backend configuration for a shell.
//
// A Registry collects property overrides while a shell is being configured.
// When the shell starts, the overrides are merged over the backend defaults into
// a Conf, which stays live for the lifetime of the backend: the backend writes
// the effective values of settings it applies, and SET statements executed by a
// script change it at runtime.
package config

import (
	"errors"
	"sort"
)

var (
	// ErrEmptyKey is returned when a property is set with an empty key.
	ErrEmptyKey = errors.New("property key must not be empty")

	// ErrFrozen is returned when a property is set on a frozen registry.
	ErrFrozen = errors.New("configuration is frozen")
)

// Properties is a flat string-to-string property set.
type Properties map[string]string

// Clone returns a copy of p. A nil receiver yields an empty set.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the property keys in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Registry is the mutable set of overrides registered before start.
// It is not safe for concurrent use; a shell is driven by one test at a time.
type Registry struct {
	props  Properties
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{props: make(Properties)}
}

// Set registers value for key, replacing any earlier value.
func (r *Registry) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if r.frozen {
		return ErrFrozen
	}
	r.props[key] = value
	return nil
}

// Get returns the registered value for key.
func (r *Registry) Get(key string) (string, bool) {
	v, ok := r.props[key]
	return v, ok
}

// Snapshot returns a copy of the registered overrides.
func (r *Registry) Snapshot() Properties {
	return r.props.Clone()
}

// Freeze rejects all further writes.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool {
	return r.frozen
}
