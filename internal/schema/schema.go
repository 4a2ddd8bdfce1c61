package schema

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/event"
)

// Schema is the loaded catalog. It is immutable after Load and safe for
// concurrent readers; keep a single instance per process.
type Schema struct {
	classes map[int]map[string]any
	objects map[string]map[string]any
	types   map[string]map[string]any

	// observable type_id -> caption
	observableTypes map[int]string

	addEnumSiblings bool
	addObservables  bool

	obsOnce          sync.Once
	classObservables map[int][]map[string]any

	logger *logging.Logger
}

// Option adjusts schema defaults.
type Option func(*Schema)

// WithEnumSiblings sets the default for enum sibling enrichment.
func WithEnumSiblings(on bool) Option {
	return func(s *Schema) { s.addEnumSiblings = on }
}

// WithObservables sets the default for observables enrichment.
func WithObservables(on bool) Option {
	return func(s *Schema) { s.addObservables = on }
}

// Load reads the schema catalog from a JSON file.
func Load(path string, logger *logging.Logger, opts ...Option) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema file: %w", err)
	}
	doc, err := event.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("schema file %q: %w", path, err)
	}
	return New(doc, logger, opts...)
}

// New indexes a decoded schema document. The top-level keys are classes
// (keyed by caption, each carrying an integer uid), objects, and types.
func New(doc map[string]any, logger *logging.Logger, opts ...Option) (*Schema, error) {
	s := &Schema{
		classes: map[int]map[string]any{},
		objects: map[string]map[string]any{},
		types:   map[string]map[string]any{},
		logger:  logger.With(logging.Component("schema")),
	}
	for _, opt := range opts {
		opt(s)
	}

	for name, def := range asTree(doc["objects"]) {
		obj, ok := def.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema: object %q is not an object", name)
		}
		s.objects[name] = obj
	}
	for name, def := range asTree(doc["types"]) {
		t, ok := def.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema: type %q is not an object", name)
		}
		s.types[name] = t
	}
	for name, def := range asTree(doc["classes"]) {
		class, ok := def.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema: class %q is not an object", name)
		}
		uid, ok := event.Int(class[attrUID])
		if !ok {
			s.logger.Warn("class without uid", slogName(name))
			continue
		}
		s.classes[uid] = class
	}

	s.observableTypes = observableTypes(s.objects[attrObservable])
	return s, nil
}

// observableTypes pulls the type_id enum captions off the observable
// object definition.
func observableTypes(observable map[string]any) map[int]string {
	out := map[int]string{}
	enum, ok := event.GetIn(observable, attrAttributes, attrTypeID, attrEnum)
	if !ok {
		return out
	}
	tree, ok := enum.(map[string]any)
	if !ok {
		return out
	}
	for key, def := range tree {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		entry, ok := def.(map[string]any)
		if !ok {
			continue
		}
		if caption, ok := entry[attrCaption].(string); ok {
			out[id] = caption
		}
	}
	return out
}

// Class returns the class definition for a class uid.
func (s *Schema) Class(uid int) (map[string]any, bool) {
	c, ok := s.classes[uid]
	return c, ok
}

// Object returns the object definition for an object name.
func (s *Schema) Object(name string) (map[string]any, bool) {
	o, ok := s.objects[name]
	return o, ok
}

// Enrich enriches the event using the schema defaults.
func (s *Schema) Enrich(data map[string]any) map[string]any {
	return s.EnrichWith(data, s.addEnumSiblings, s.addObservables)
}

// EnrichWith enriches the event tree: type_uid is derived for known
// classes, enum captions are added as siblings, and observables are
// collected into a top-level list. Events whose class is unknown are
// returned unchanged.
func (s *Schema) EnrichWith(data map[string]any, addEnumSiblings, addObservables bool) map[string]any {
	class, ok := s.eventClass(data)
	if !ok {
		return data
	}

	AddTypeUID(data)

	if !addEnumSiblings && !addObservables {
		return data
	}

	var observables []map[string]any
	enriched := make(map[string]any, len(data))
	s.enrich("", data, class, addEnumSiblings, addObservables, enriched, &observables)

	if addObservables && len(observables) > 0 {
		list := make([]any, len(observables))
		for i, o := range observables {
			list[i] = o
		}
		enriched[AttrObservables] = list
	}
	return enriched
}

func (s *Schema) eventClass(data map[string]any) (map[string]any, bool) {
	uid, ok := event.Int(data[AttrClassUID])
	if !ok {
		return nil, false
	}
	class, ok := s.classes[uid]
	return class, ok
}

// enrich walks the event tree against the class (or object) definition,
// writing the enriched attributes into out and appending observables.
func (s *Schema) enrich(
	parent string,
	data map[string]any,
	def map[string]any,
	addEnumSiblings bool,
	addObservables bool,
	out map[string]any,
	observables *[]map[string]any,
) {
	attributes := asTree(def[attrAttributes])

	for name, value := range data {
		path := name
		if parent != "" {
			path = parent + "." + name
		}

		attr, _ := attributes[name].(map[string]any)
		if attr == nil || attr[attrType] == opaqueType {
			// Unknown attributes and opaque payloads pass through.
			out[name] = value
			continue
		}

		if enum, ok := attr[attrEnum].(map[string]any); ok {
			if addEnumSiblings {
				s.addEnumSibling(out, enum, name, attr, value)
			}
			out[name] = value
			continue
		}

		switch v := value.(type) {
		case map[string]any:
			out[name] = s.enrichObject(path, attr, v, addEnumSiblings, addObservables, observables)
		case []any:
			if attr[attrIsArray] == true {
				out[name] = s.enrichArray(path, attr, v, addEnumSiblings, addObservables, observables)
			} else {
				out[name] = value
			}
		default:
			if addObservables {
				s.addValueObservable(observables, attr, path, value)
			}
			out[name] = value
		}
	}
}

// addEnumSibling writes the enum caption next to the enum attribute. An
// existing sibling value is never overwritten, which keeps enrichment
// idempotent.
func (s *Schema) addEnumSibling(
	out map[string]any,
	enum map[string]any,
	name string,
	attr map[string]any,
	value any,
) {
	sibling := enumSibling(name, enum)
	if sibling == "" {
		return
	}
	if _, exists := out[sibling]; exists {
		return
	}
	caption, ok := event.GetIn(enum, event.String(value), attrCaption)
	if !ok {
		return
	}
	out[sibling] = caption
}

// enumSibling resolves the sibling attribute name: the enum's explicit
// sibling, or the attribute name with its _id suffix stripped.
func enumSibling(name string, enum map[string]any) string {
	if sibling, ok := enum[attrSibling].(string); ok {
		return sibling
	}
	if base, found := cutSuffix(name, enumSuffix); found {
		return base
	}
	return ""
}

func (s *Schema) enrichObject(
	path string,
	attr map[string]any,
	value map[string]any,
	addEnumSiblings bool,
	addObservables bool,
	observables *[]map[string]any,
) any {
	objectType, _ := attr[attrObjectType].(string)
	object, ok := s.objects[objectType]
	if !ok {
		s.logger.Debug("attribute has no known object type", slogName(path))
		return value
	}

	if addObservables {
		if id, ok := event.Int(object[attrObservable]); ok {
			*observables = append(*observables, s.newObservable(id, path, nil))
		}
	}

	out := make(map[string]any, len(value))
	s.enrich(path, value, object, addEnumSiblings, addObservables, out, observables)
	return out
}

func (s *Schema) enrichArray(
	path string,
	attr map[string]any,
	list []any,
	addEnumSiblings bool,
	addObservables bool,
	observables *[]map[string]any,
) any {
	objectType, _ := attr[attrObjectType].(string)
	object, ok := s.objects[objectType]
	if !ok {
		return list
	}

	out := make([]any, len(list))
	for i, item := range list {
		element, ok := item.(map[string]any)
		if !ok {
			out[i] = item
			continue
		}
		enriched := make(map[string]any, len(element))
		s.enrich(path, element, object, addEnumSiblings, addObservables, enriched, observables)
		out[i] = enriched
	}
	return out
}

func (s *Schema) addValueObservable(
	observables *[]map[string]any,
	attr map[string]any,
	path string,
	value any,
) {
	attrType, ok := attr[attrType].(string)
	if !ok {
		return
	}
	typeDef, ok := s.types[attrType]
	if !ok {
		s.logger.Debug("attribute has invalid type", slogName(path))
		return
	}
	id, ok := event.Int(typeDef[attrObservable])
	if !ok {
		return
	}
	*observables = append(*observables, s.newObservable(id, path, value))
}

// newObservable builds one observable descriptor. A nil value produces a
// path-only descriptor, used for object-typed observables.
func (s *Schema) newObservable(typeID int, path string, value any) map[string]any {
	caption, ok := s.observableTypes[typeID]
	if !ok {
		caption = Other
	}
	o := map[string]any{
		attrName:   path,
		attrType:   caption,
		attrTypeID: typeID,
	}
	if value != nil {
		o[attrValue] = value
	}
	return o
}

func asTree(v any) map[string]any {
	t, _ := v.(map[string]any)
	return t
}

func cutSuffix(s, suffix string) (string, bool) {
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)], true
	}
	return s, false
}

func slogName(name string) slog.Attr {
	return slog.String("attribute", name)
}
