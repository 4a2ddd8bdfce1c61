package pipeline

import (
	"context"
	"sync"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/event"
	"github.com/telhawk-systems/telhawk-normalize/internal/fuzzy"
	"github.com/telhawk-systems/telhawk-normalize/internal/parsers"
	"github.com/telhawk-systems/telhawk-normalize/internal/translate"
)

// Demuxer splits the incoming raw event stream into one pipeline per
// source type. Pipelines are created lazily on the first event of a
// source type; events with no source type, or with no registered parser
// or translators, go to the raw side-channel instead.
type Demuxer struct {
	parsers     *fuzzy.Map[parsers.Parser]
	normalizers *fuzzy.Map[*translate.Translators]

	sink          Sink // translated events
	queueCapacity int

	queues map[string]*Queue
	warned map[string]bool

	wg     sync.WaitGroup
	worker *Transformer
	logger *logging.Logger
}

// NewDemuxer creates a demuxer reading raw events from source. Translated
// events are put on sink; unroutable events on raw. queueCapacity sizes
// each per-source queue (0 for unbounded).
func NewDemuxer(
	parserRegistry *fuzzy.Map[parsers.Parser],
	normalizers *fuzzy.Map[*translate.Translators],
	source Source,
	sink Sink,
	raw Sink,
	queueCapacity int,
	logger *logging.Logger,
) *Demuxer {
	d := &Demuxer{
		parsers:       parserRegistry,
		normalizers:   normalizers,
		sink:          sink,
		queueCapacity: queueCapacity,
		queues:        make(map[string]*Queue, parserRegistry.Len()+1),
		warned:        map[string]bool{},
		logger:        logger.With(logging.Component("demuxer")),
	}
	d.worker = NewTransformer("demuxer", source, raw, d.process, d.terminated, logger)
	return d
}

// Start runs the demuxer worker.
func (d *Demuxer) Start(ctx context.Context) {
	d.worker.Start(ctx)
}

// Done is closed when the demuxer worker itself has exited. Downstream
// processors may still be draining; use Wait for a full drain.
func (d *Demuxer) Done() <-chan struct{} {
	return d.worker.Done()
}

// Wait blocks until the demuxer and every processor it started have
// exited.
func (d *Demuxer) Wait() {
	<-d.worker.Done()
	d.wg.Wait()
}

// process routes one raw event to its source-type queue. A non-nil
// return hands the event to the raw side-channel.
func (d *Demuxer) process(ctx context.Context, e *event.Event) (*event.Event, error) {
	source, ok := e.SourceType()
	if !ok {
		d.logger.Warn("missing source type")
		return e, nil
	}

	queue := d.queueFor(ctx, source)
	if queue == nil {
		return e, nil
	}

	if err := queue.Put(ctx, e); err != nil {
		return nil, err
	}
	return nil, nil
}

// queueFor returns the pipeline inlet for the source type, starting a
// processor on first use. At most one processor per source type exists
// for the life of the demuxer.
func (d *Demuxer) queueFor(ctx context.Context, source string) *Queue {
	if queue, ok := d.queues[source]; ok {
		return queue
	}

	parser, haveParser := d.parsers.Get(source)
	normalizer, haveNormalizer := d.normalizers.Get(source)

	if !haveParser || !haveNormalizer {
		if !d.warned[source] {
			d.warned[source] = true
			if !haveParser {
				d.logger.Warn("missing event parser", logging.SourceType(source))
			}
			if !haveNormalizer {
				d.logger.Warn("missing event normalizer", logging.SourceType(source))
			}
		}
		return nil
	}

	queue := NewQueue(d.queueCapacity)
	proc := NewProcessor("processor:"+source, parser, normalizer, queue, d.sink, d.worker.sink, d.logger)
	proc.Start(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		<-proc.Done()
	}()

	d.queues[source] = queue
	return queue
}

// terminated propagates EOS to every per-source queue exactly once, then
// to the raw side-channel.
func (d *Demuxer) terminated(ctx context.Context) {
	for _, queue := range d.queues {
		if err := queue.Put(ctx, event.EOS()); err != nil {
			d.logger.Info("shutdown interrupted", logging.Err(err))
			return
		}
	}
	if err := d.worker.sink.Put(ctx, event.EOS()); err != nil {
		d.logger.Info("shutdown interrupted", logging.Err(err))
	}
}

// ProcessOne parses and translates a single raw event tree synchronously,
// outside the worker fabric. It returns nil when the event cannot be
// routed, parsed, or translated.
func (d *Demuxer) ProcessOne(data map[string]any) map[string]any {
	source, ok := data[event.SourceType].(string)
	if !ok {
		d.logger.Warn("missing source type")
		return nil
	}

	parser, haveParser := d.parsers.Get(source)
	if !haveParser {
		d.logger.Warn("missing event parser", logging.SourceType(source))
		return nil
	}
	normalizer, haveNormalizer := d.normalizers.Get(source)
	if !haveNormalizer {
		d.logger.Warn("missing event normalizer", logging.SourceType(source))
		return nil
	}

	translated, err := Normalize(parser, normalizer, data)
	if err != nil {
		d.logger.Warn("event dropped", logging.SourceType(source), logging.Err(err))
		return nil
	}
	return translated
}
