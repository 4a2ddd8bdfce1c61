// Package translate implements the rule-driven translation engine that
// rewrites parsed vendor trees into canonical attribute trees.
//
// A rule document is JSON with four recognized fields: desc, when,
// parser/parsers, and rules. Documents are compiled once into immutable
// Translators; evaluation never allocates compiled state.
package translate

import (
	"fmt"
	"regexp"

	"github.com/telhawk-systems/telhawk-normalize/internal/event"
	"github.com/telhawk-systems/telhawk-normalize/internal/pattern"
)

// Translator turns a parsed tree into a canonical tree, or nil when it
// does not apply. Implementations may consume attributes from the input
// tree; whatever is left behind lands in the event's unmapped section.
type Translator interface {
	Apply(data map[string]any) map[string]any
}

// Func adapts a plain function to the Translator interface.
type Func func(data map[string]any) map[string]any

// Apply calls the wrapped function.
func (f Func) Apply(data map[string]any) map[string]any {
	return f(data)
}

type opKind int

const (
	opMove opKind = iota
	opCopy
	opValue
	opEnum
	opRemove
)

// stage is one staged sub-parse step: the string at input is re-parsed
// and the resulting tree merged at output.
type stage struct {
	input  []string
	pat    *pattern.Pattern
	re     *regexp.Regexp
	output []string
}

// rewrite is one compiled field-rewrite rule.
type rewrite struct {
	op     opKind
	source []string
	target []string

	coerce     string // @move/@copy object form
	def        any
	hasDefault bool

	literal any // @value

	enumValues  map[string]any // @enum
	enumDefault any
	enumHasDef  bool
}

// Rule is a Translator compiled from one JSON rule document.
type Rule struct {
	desc   string
	when   *predicate
	stages []stage
	rules  []rewrite
}

// FromJSON compiles a rule document from its JSON encoding.
func FromJSON(data []byte) (*Rule, error) {
	doc, err := event.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("rule document: %w", err)
	}
	return Compile(doc)
}

// Compile builds a Rule from a decoded rule document. Unknown top-level
// keys are ignored; unknown operators and malformed clauses are
// load-time errors.
func Compile(doc map[string]any) (*Rule, error) {
	r := &Rule{}
	r.desc, _ = doc["desc"].(string)

	if w, ok := doc["when"]; ok {
		text, ok := w.(string)
		if !ok {
			return nil, fmt.Errorf("rule %q: when must be a string", r.desc)
		}
		p, err := parsePredicate(text)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.desc, err)
		}
		r.when = p
	}

	if s, ok := doc["parser"]; ok {
		st, err := compileStage(s)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.desc, err)
		}
		r.stages = append(r.stages, st)
	}
	if list, ok := doc["parsers"].([]any); ok {
		for _, s := range list {
			st, err := compileStage(s)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.desc, err)
			}
			r.stages = append(r.stages, st)
		}
	}

	if list, ok := doc["rules"].([]any); ok {
		for _, entry := range list {
			rw, err := compileRewrite(entry)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.desc, err)
			}
			r.rules = append(r.rules, rw)
		}
	}

	return r, nil
}

func compileStage(v any) (stage, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return stage{}, fmt.Errorf("parser entry must be an object")
	}
	name, _ := m["name"].(string)
	output, _ := m["output"].(string)
	if name == "" || output == "" {
		return stage{}, fmt.Errorf("parser entry needs name and output")
	}

	st := stage{
		input:  event.SplitPath(name),
		output: event.SplitPath(output),
	}

	switch {
	case m["pattern"] != nil:
		text, ok := m["pattern"].(string)
		if !ok {
			return stage{}, fmt.Errorf("parser %q: pattern must be a string", name)
		}
		p, err := pattern.Compile(text)
		if err != nil {
			return stage{}, err
		}
		st.pat = p
	case m["regex"] != nil:
		text, ok := m["regex"].(string)
		if !ok {
			return stage{}, fmt.Errorf("parser %q: regex must be a string", name)
		}
		re, err := regexp.Compile(text)
		if err != nil {
			return stage{}, fmt.Errorf("parser %q: %w", name, err)
		}
		st.re = re
	default:
		return stage{}, fmt.Errorf("parser %q needs a pattern or regex", name)
	}

	return st, nil
}

func compileRewrite(entry any) (rewrite, error) {
	m, ok := entry.(map[string]any)
	if !ok || len(m) != 1 {
		return rewrite{}, fmt.Errorf("rewrite rule must be a single-key object")
	}

	var source string
	var body any
	for k, v := range m {
		source, body = k, v
	}

	ops, ok := body.(map[string]any)
	if !ok {
		return rewrite{}, fmt.Errorf("rewrite %q: body must be an object", source)
	}

	rw := rewrite{source: event.SplitPath(source)}
	assigned := false

	for k, arg := range ops {
		switch k {
		case "desc":
			// informational
		case "@move", "@copy":
			if err := compileMove(&rw, k, arg); err != nil {
				return rewrite{}, fmt.Errorf("rewrite %q: %w", source, err)
			}
			assigned = true
		case "@value":
			rw.op = opValue
			rw.target = rw.source
			rw.literal = arg
			assigned = true
		case "@enum":
			if err := compileEnum(&rw, arg); err != nil {
				return rewrite{}, fmt.Errorf("rewrite %q: %w", source, err)
			}
			assigned = true
		case "@remove":
			rw.op = opRemove
			assigned = true
		default:
			return rewrite{}, fmt.Errorf("rewrite %q: unknown operator %q", source, k)
		}
	}

	if !assigned {
		return rewrite{}, fmt.Errorf("rewrite %q has no operator", source)
	}
	return rw, nil
}

func compileMove(rw *rewrite, op string, arg any) error {
	if op == "@move" {
		rw.op = opMove
	} else {
		rw.op = opCopy
	}

	switch t := arg.(type) {
	case string:
		rw.target = event.SplitPath(t)
		return nil
	case map[string]any:
		name, _ := t["name"].(string)
		if name == "" {
			return fmt.Errorf("%s needs a target name", op)
		}
		rw.target = event.SplitPath(name)
		if typ, ok := t["type"]; ok {
			s, ok := typ.(string)
			if !ok || !validCoercion(s) {
				return fmt.Errorf("%s: unsupported coercion %v", op, typ)
			}
			rw.coerce = s
		}
		if def, ok := t["default"]; ok {
			rw.def = def
			rw.hasDefault = true
		}
		return nil
	default:
		return fmt.Errorf("%s argument must be a string or object", op)
	}
}

func compileEnum(rw *rewrite, arg any) error {
	m, ok := arg.(map[string]any)
	if !ok {
		return fmt.Errorf("@enum argument must be an object")
	}
	name, _ := m["name"].(string)
	if name == "" {
		return fmt.Errorf("@enum needs a target name")
	}
	values, ok := m["values"].(map[string]any)
	if !ok {
		return fmt.Errorf("@enum needs a values table")
	}

	rw.op = opEnum
	rw.target = event.SplitPath(name)
	rw.enumValues = values
	if def, ok := m["default"]; ok {
		rw.enumDefault = def
		rw.enumHasDef = true
	}
	return nil
}

func validCoercion(s string) bool {
	switch s {
	case "integer", "long", "string", "timestamp", "downcase", "upcase":
		return true
	}
	return false
}

// Apply evaluates the rule against data. The guard is checked first;
// staged sub-parsers run next, mutating data in place; finally the field
// rewrites build the output tree. Moved attributes are consumed from
// data so the caller can collect the leftovers.
func (r *Rule) Apply(data map[string]any) map[string]any {
	if r.when != nil && !r.when.eval(data) {
		return nil
	}

	for _, st := range r.stages {
		r.runStage(st, data)
	}

	out := map[string]any{}
	for _, rw := range r.rules {
		r.applyRewrite(rw, data, out)
	}
	return out
}

// Desc returns the rule's informational description.
func (r *Rule) Desc() string {
	return r.desc
}

func (r *Rule) runStage(st stage, data map[string]any) {
	v, ok := event.GetIn(data, st.input...)
	if !ok {
		return
	}
	text, ok := v.(string)
	if !ok {
		return
	}

	var parsed map[string]any
	if st.pat != nil {
		p, err := st.pat.Parse(text)
		if err != nil {
			return
		}
		parsed = p
	} else {
		parsed = matchNamedGroups(st.re, text)
		if parsed == nil {
			return
		}
	}

	event.MergeIn(data, st.output, parsed)
}

func matchNamedGroups(re *regexp.Regexp, text string) map[string]any {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	out := map[string]any{}
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(match) || match[i] == "" {
			continue
		}
		out[name] = match[i]
	}
	return out
}

func (r *Rule) applyRewrite(rw rewrite, data, out map[string]any) {
	switch rw.op {
	case opRemove:
		event.RemoveIn(data, rw.source)

	case opValue:
		event.PutIn(out, rw.target, rw.literal)

	case opMove, opCopy:
		var v any
		var ok bool
		if rw.op == opMove {
			v, ok = event.RemoveIn(data, rw.source)
		} else {
			v, ok = event.GetIn(data, rw.source...)
		}
		if ok && rw.coerce != "" {
			v, ok = coerceValue(v, rw.coerce)
		}
		if !ok {
			if rw.hasDefault {
				event.PutIn(out, rw.target, rw.def)
			}
			return
		}
		event.PutIn(out, rw.target, v)

	case opEnum:
		v, ok := event.RemoveIn(data, rw.source)
		if !ok {
			if rw.enumHasDef {
				event.PutIn(out, rw.target, rw.enumDefault)
			}
			return
		}
		if mapped, ok := rw.enumValues[event.String(v)]; ok {
			event.PutIn(out, rw.target, mapped)
		} else if rw.enumHasDef {
			event.PutIn(out, rw.target, rw.enumDefault)
		}
	}
}
