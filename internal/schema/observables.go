package schema

import (
	"strings"

	"github.com/telhawk-systems/telhawk-normalize/internal/event"
)

// loopThreshold bounds recursion through self-referential object graphs:
// a path segment seen more than this many times stops the descent.
const loopThreshold = 2

// Observables returns the observable descriptors reachable from a class,
// building the class-to-observables index on first use.
func (s *Schema) Observables(classUID int) ([]map[string]any, bool) {
	s.obsOnce.Do(s.buildClassObservables)
	list, ok := s.classObservables[classUID]
	return list, ok
}

// ObservablesOfType filters a class's observables by observable type id,
// keyed by attribute path.
func (s *Schema) ObservablesOfType(classUID, typeID int) (map[string]map[string]any, bool) {
	list, ok := s.Observables(classUID)
	if !ok {
		return nil, false
	}
	out := map[string]map[string]any{}
	for _, o := range list {
		if o[attrTypeID] == typeID {
			name, _ := o[attrName].(string)
			out[name] = o
		}
	}
	return out, true
}

func (s *Schema) buildClassObservables() {
	s.classObservables = make(map[int][]map[string]any, len(s.classes))
	for uid, class := range s.classes {
		var acc []map[string]any
		s.walkObservables("", class, &acc)
		s.classObservables[uid] = acc
	}
}

// walkObservables collects the observables of a class or object
// definition by walking its attribute tree.
func (s *Schema) walkObservables(parent string, def map[string]any, acc *[]map[string]any) {
	for name, raw := range asTree(def[attrAttributes]) {
		attr, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		path := name
		if parent != "" {
			path = parent + "." + name
		}

		// Arrays are unbounded in the event, so their element paths are
		// not materialized in the index.
		if attr[attrIsArray] == true {
			continue
		}

		if objectType, ok := attr[attrObjectType].(string); ok {
			s.walkObjectObservables(path, s.objects[objectType], acc)
			continue
		}

		attrType, ok := attr[attrType].(string)
		if !ok {
			s.logger.Warn("attribute without type", slogName(path))
			continue
		}
		typeDef, ok := s.types[attrType]
		if !ok {
			s.logger.Warn("attribute has invalid type", slogName(path))
			continue
		}
		if id, ok := event.Int(typeDef[attrObservable]); ok {
			*acc = append(*acc, s.newObservable(id, path, nil))
		}
	}
}

func (s *Schema) walkObjectObservables(path string, object map[string]any, acc *[]map[string]any) {
	if object == nil {
		s.logger.Warn("attribute has invalid object type", slogName(path))
		return
	}
	if isPathLooped(path) {
		s.logger.Debug("looped object path", slogName(path))
		return
	}
	if id, ok := event.Int(object[attrObservable]); ok {
		*acc = append(*acc, s.newObservable(id, path, nil))
	}
	s.walkObservables(path, object, acc)
}

// isPathLooped reports whether any path segment repeats beyond the loop
// threshold.
func isPathLooped(path string) bool {
	seen := map[string]int{}
	for _, seg := range strings.Split(path, ".") {
		seen[seg]++
		if seen[seg] > loopThreshold {
			return true
		}
	}
	return false
}
