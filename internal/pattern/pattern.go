// Package pattern implements the small tokenizing grammar used by rule
// documents and vendor parsers to pull fields out of raw text.
//
// A pattern is literal text interleaved with field captures:
//
//	DHCPACK on #{ip} to #{mac} (#{hostname}) via #{interface}
//
// Each field captures the input up to the next literal. The field name
// "_" discards the capture. A field may carry a type hint, either
// #{lease: integer} or #{timestamp: string(syslog-time)}; integer
// captures are converted, string hints are kept verbatim.
package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	fieldOpen  = "#{"
	fieldClose = "}"
	discard    = "_"
)

type token struct {
	literal string // non-empty for literal tokens
	name    string // field name, "" for literal tokens
	typ     string // optional type hint: "", "integer", "string"
}

// Pattern is a compiled tokenizing grammar.
type Pattern struct {
	source string
	tokens []token
}

// Compile parses the pattern text into a matcher. Adjacent fields with no
// separating literal are rejected since the capture boundary would be
// ambiguous.
func Compile(text string) (*Pattern, error) {
	p := &Pattern{source: text}
	rest := text

	for len(rest) > 0 {
		open := strings.Index(rest, fieldOpen)
		if open < 0 {
			p.tokens = append(p.tokens, token{literal: rest})
			break
		}
		if open > 0 {
			p.tokens = append(p.tokens, token{literal: rest[:open]})
		}
		rest = rest[open+len(fieldOpen):]

		end := strings.Index(rest, fieldClose)
		if end < 0 {
			return nil, fmt.Errorf("pattern %q: unterminated field", text)
		}

		field, err := parseField(rest[:end])
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", text, err)
		}

		if n := len(p.tokens); n > 0 && p.tokens[n-1].name != "" {
			return nil, fmt.Errorf("pattern %q: adjacent fields need a literal separator", text)
		}
		p.tokens = append(p.tokens, field)
		rest = rest[end+len(fieldClose):]
	}

	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("empty pattern")
	}
	return p, nil
}

// MustCompile is Compile, panicking on error. Intended for patterns fixed
// at build time.
func MustCompile(text string) *Pattern {
	p, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return p
}

func parseField(spec string) (token, error) {
	name, hint, found := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return token{}, fmt.Errorf("field with empty name")
	}

	t := token{name: name}
	if !found {
		return t, nil
	}

	hint = strings.TrimSpace(hint)
	if i := strings.Index(hint, "("); i >= 0 {
		hint = hint[:i]
	}
	switch hint {
	case "integer", "string":
		t.typ = hint
	default:
		return token{}, fmt.Errorf("field %q: unknown type %q", name, hint)
	}
	return t, nil
}

// Parse matches text against the pattern, returning the captured fields.
// It fails when a literal does not occur where the pattern requires it.
func (p *Pattern) Parse(text string) (map[string]any, error) {
	out := map[string]any{}
	rest := text

	for i, tok := range p.tokens {
		if tok.name == "" {
			if !strings.HasPrefix(rest, tok.literal) {
				return nil, fmt.Errorf("pattern %q: expected %q at %q", p.source, tok.literal, clip(rest))
			}
			rest = rest[len(tok.literal):]
			continue
		}

		var capture string
		if i == len(p.tokens)-1 {
			capture, rest = rest, ""
		} else {
			// Next token is always a literal; adjacent fields are
			// rejected at compile time.
			next := p.tokens[i+1].literal
			at := strings.Index(rest, next)
			if at < 0 {
				return nil, fmt.Errorf("pattern %q: missing %q after field %q", p.source, next, tok.name)
			}
			capture, rest = rest[:at], rest[at:]
		}

		if tok.name == discard {
			continue
		}
		value, err := convert(capture, tok.typ)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: field %q: %w", p.source, tok.name, err)
		}
		out[tok.name] = value
	}

	return out, nil
}

// String returns the original pattern text.
func (p *Pattern) String() string {
	return p.source
}

func convert(capture, typ string) (any, error) {
	if typ == "integer" {
		n, err := strconv.Atoi(strings.TrimSpace(capture))
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return capture, nil
}

func clip(s string) string {
	const max = 32
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
