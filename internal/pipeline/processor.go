package pipeline

import (
	"context"
	"fmt"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/event"
	"github.com/telhawk-systems/telhawk-normalize/internal/parsers"
	"github.com/telhawk-systems/telhawk-normalize/internal/translate"
)

// Unmapped is the attribute holding everything the matched rule did not
// claim: the original source type, tenant, raw text, and leftover parsed
// attributes.
const Unmapped = "unmapped"

// Processor drains one source-type queue, parses the raw text, and runs
// the result through the source's translators.
type Processor struct {
	parser      parsers.Parser
	translators *translate.Translators
	raw         Sink
	worker      *Transformer
}

// NewProcessor binds a parser and translator collection to a source
// queue and output sink. Events that parse but match no translator go to
// the raw side-channel when one is given, otherwise they are dropped.
func NewProcessor(
	name string,
	parser parsers.Parser,
	translators *translate.Translators,
	source Source,
	sink Sink,
	raw Sink,
	logger *logging.Logger,
) *Processor {
	p := &Processor{
		parser:      parser,
		translators: translators,
		raw:         raw,
	}
	p.worker = NewTransformer(name, source, sink, p.process, nil, logger)
	return p
}

// Start runs the processor worker.
func (p *Processor) Start(ctx context.Context) {
	p.worker.Start(ctx)
}

// Done is closed when the processor worker has exited.
func (p *Processor) Done() <-chan struct{} {
	return p.worker.Done()
}

func (p *Processor) process(ctx context.Context, e *event.Event) (*event.Event, error) {
	translated, err := Normalize(p.parser, p.translators, e.Data())
	if err != nil {
		return nil, err
	}
	if translated == nil {
		if p.raw != nil {
			return nil, p.raw.Put(ctx, e)
		}
		return nil, nil
	}
	return event.New(translated), nil
}

// Normalize parses and translates one raw event tree. It returns nil
// with no error when the event has no raw text or no translator matched,
// and an error when the parser failed.
func Normalize(
	parser parsers.Parser,
	translators *translate.Translators,
	data map[string]any,
) (map[string]any, error) {
	text, ok := data[event.RawEvent].(string)
	if !ok {
		return nil, nil
	}

	parsed, err := parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	translated := translators.Translate(parsed)
	if translated == nil {
		return nil, nil
	}

	// Whatever the rule did not consume rides along under unmapped,
	// together with the raw attributes of the envelope.
	unmapped := make(map[string]any, len(parsed)+3)
	for k, v := range parsed {
		unmapped[k] = v
	}
	if st, ok := data[event.SourceType]; ok {
		unmapped[event.SourceType] = st
	}
	if tenant, ok := data[event.Tenant]; ok {
		unmapped[event.Tenant] = tenant
	}
	unmapped[event.RawEvent] = text
	event.MergeIn(translated, []string{Unmapped}, unmapped)

	return translated, nil
}
