// Package parsers holds the raw-text parsers that turn vendor telemetry
// into key-value trees for the translation engine.
package parsers

// Parser converts raw event text into a parsed tree. Implementations are
// CPU-bound and must be safe for concurrent use.
type Parser interface {
	Parse(text string) (map[string]any, error)

	// SourceType names the source-type family this parser handles.
	SourceType() string
}

// Func adapts a plain function to the Parser interface.
type Func func(text string) (map[string]any, error)

// Parse calls the wrapped function.
func (f Func) Parse(text string) (map[string]any, error) {
	return f(text)
}

// SourceType returns an empty name; Func parsers are registered under an
// explicit key.
func (Func) SourceType() string { return "" }

// Builtin returns the vendor parsers this build ships with.
func Builtin() []Parser {
	return []Parser{
		NewInfobloxDHCP(),
		NewBarracudaWAF(),
	}
}
