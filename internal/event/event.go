// Package event defines the message envelope flowing through the
// normalization pipeline and helpers for working with nested
// key-value event trees.
package event

// Raw attribute names carried by every event before parsing.
const (
	RawEvent   = "rawEvent"
	SourceType = "sourceType"
	Tenant     = "tenant"
)

// Event is an immutable envelope around a mutable event data tree.
// The zero Event is not valid; use New or EOS.
type Event struct {
	data map[string]any
	eos  bool
}

// eos is the end-of-stream singleton. No other Event compares equal to it.
var eos = &Event{eos: true}

// New wraps the given data tree in an event envelope.
func New(data map[string]any) *Event {
	return &Event{data: data}
}

// EOS returns the end-of-stream sentinel event.
func EOS() *Event {
	return eos
}

// IsEOS reports whether e is the end-of-stream sentinel.
func (e *Event) IsEOS() bool {
	return e == eos
}

// Data returns the underlying event data tree.
func (e *Event) Data() map[string]any {
	return e.data
}

// SourceType returns the event's source type attribute, if present.
func (e *Event) SourceType() (string, bool) {
	s, ok := e.data[SourceType].(string)
	return s, ok
}
