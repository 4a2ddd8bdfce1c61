package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PathSeparator splits dotted attribute paths into segments.
const PathSeparator = "."

// SplitPath splits a dotted path into its segments.
func SplitPath(path string) []string {
	return strings.Split(path, PathSeparator)
}

// GetIn looks up a value by path segments, descending through nested maps.
// It returns nil, false when any intermediate segment is missing or is not
// a map.
func GetIn(data map[string]any, path ...string) (any, bool) {
	cur := any(data)
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetPath is GetIn over a dotted path string.
func GetPath(data map[string]any, path string) (any, bool) {
	return GetIn(data, SplitPath(path)...)
}

// PutIn writes value at the given path, creating intermediate maps lazily.
// An existing non-map value is never replaced by an intermediate map; in
// that case the write is dropped and false is returned.
func PutIn(data map[string]any, path []string, value any) bool {
	m := data
	for _, seg := range path[:len(path)-1] {
		next, ok := m[seg]
		if !ok {
			child := map[string]any{}
			m[seg] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return false
		}
		m = child
	}
	m[path[len(path)-1]] = value
	return true
}

// PutPath is PutIn over a dotted path string.
func PutPath(data map[string]any, path string, value any) bool {
	return PutIn(data, SplitPath(path), value)
}

// RemoveIn deletes the value at the given path and returns it. The second
// return is false when the path does not resolve.
func RemoveIn(data map[string]any, path []string) (any, bool) {
	m := data
	for _, seg := range path[:len(path)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		m = next
	}
	last := path[len(path)-1]
	v, ok := m[last]
	if ok {
		delete(m, last)
	}
	return v, ok
}

// MergeIn merges the src tree into data at the given path, creating
// intermediate maps as needed. Keys already present at the destination are
// overwritten by src.
func MergeIn(data map[string]any, path []string, src map[string]any) {
	target := data
	for _, seg := range path {
		next, ok := target[seg].(map[string]any)
		if !ok {
			if _, exists := target[seg]; exists {
				return
			}
			next = map[string]any{}
			target[seg] = next
		}
		target = next
	}
	for k, v := range src {
		target[k] = v
	}
}

// Clone returns a deep copy of the event tree. Nested maps and slices are
// copied; scalar values are shared.
func Clone(data map[string]any) map[string]any {
	dup := make(map[string]any, len(data))
	for k, v := range data {
		dup[k] = cloneValue(v)
	}
	return dup
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		list := make([]any, len(t))
		for i, e := range t {
			list[i] = cloneValue(e)
		}
		return list
	default:
		return v
	}
}

// Int coerces integral values to int. JSON documents decoded by this
// package yield int for integral numbers, but callers may also hand in
// raw json-decoded trees with float64 values.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

// String renders a scalar value in its canonical string form. Integral
// floats print without a fraction so enum keys derived from JSON numbers
// stay stable.
func String(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// DecodeJSON parses a JSON object, normalizing integral numbers to int and
// everything else numeric to float64. Rule documents, schema files, and
// raw event payloads all pass through here so number typing is uniform
// across the pipeline.
func DecodeJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return normalizeTree(doc), nil
}

func normalizeTree(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeTree(t)
	case []any:
		for i, e := range t {
			t[i] = normalizeValue(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}
