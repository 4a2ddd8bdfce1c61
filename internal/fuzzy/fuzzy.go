// Package fuzzy provides a registry keyed by structured source-type
// strings where lookup falls back to progressively shorter keys.
//
// A value registered under "syslog" is found by "syslog:firewall:7": the
// requested key is matched exactly first, then suffix segments are
// stripped one at a time until a registration hits.
package fuzzy

import "strings"

// DefaultSeparator delimits source-type key segments.
const DefaultSeparator = ":"

// Map is a read-mostly fuzzy registry. Registration is not safe for use
// concurrently with lookups; populate the map during startup.
type Map[T any] struct {
	sep   string
	items map[string]T
}

// New creates an empty fuzzy map using the given key separator. An empty
// separator selects DefaultSeparator.
func New[T any](sep string) *Map[T] {
	if sep == "" {
		sep = DefaultSeparator
	}
	return &Map[T]{sep: sep, items: map[string]T{}}
}

// Put registers a value under the exact key.
func (m *Map[T]) Put(key string, value T) {
	m.items[key] = value
}

// Get looks up the value for key, stripping the shortest suffix delimited
// by the separator on each miss. The boolean reports whether any
// registration matched.
func (m *Map[T]) Get(key string) (T, bool) {
	for {
		if v, ok := m.items[key]; ok {
			return v, true
		}
		i := strings.LastIndex(key, m.sep)
		if i < 0 {
			var zero T
			return zero, false
		}
		key = key[:i]
	}
}

// Len returns the number of exact registrations.
func (m *Map[T]) Len() int {
	return len(m.items)
}

// Keys returns the registered keys in unspecified order.
func (m *Map[T]) Keys() []string {
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}
