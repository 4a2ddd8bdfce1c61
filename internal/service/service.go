// Package service wires the normalization pipeline to the message bus:
// raw envelopes in, translated and enriched events out.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/common/messaging"
	natsclient "github.com/telhawk-systems/telhawk-normalize/common/messaging/nats"
	"github.com/telhawk-systems/telhawk-normalize/internal/config"
	"github.com/telhawk-systems/telhawk-normalize/internal/event"
	"github.com/telhawk-systems/telhawk-normalize/internal/fuzzy"
	"github.com/telhawk-systems/telhawk-normalize/internal/parsers"
	"github.com/telhawk-systems/telhawk-normalize/internal/pipeline"
	"github.com/telhawk-systems/telhawk-normalize/internal/schema"
	"github.com/telhawk-systems/telhawk-normalize/internal/translate"
)

// Service runs the demuxer fabric against the configured message bus.
type Service struct {
	cfg    *config.Config
	logger *logging.Logger

	parsers     *fuzzy.Map[parsers.Parser]
	normalizers *fuzzy.Map[*translate.Translators]
	catalog     *schema.Schema
}

// New loads the rule documents and schema catalog and prepares the
// registries. Load failures abort startup.
func New(cfg *config.Config, logger *logging.Logger) (*Service, error) {
	normalizers, err := translate.LoadDir(cfg.Rules.Dir, cfg.Pipeline.FuzzySeparator, logger)
	if err != nil {
		return nil, err
	}

	registry := fuzzy.New[parsers.Parser](cfg.Pipeline.FuzzySeparator)
	for _, p := range parsers.Builtin() {
		registry.Put(p.SourceType(), p)
	}

	s := &Service{
		cfg:         cfg,
		logger:      logger.With(logging.Component("service")),
		parsers:     registry,
		normalizers: normalizers,
	}

	if cfg.Schema.Path != "" {
		catalog, err := schema.Load(cfg.Schema.Path, logger,
			schema.WithEnumSiblings(cfg.Enrich.AddEnumSiblings),
			schema.WithObservables(cfg.Enrich.AddObservables))
		if err != nil {
			return nil, err
		}
		s.catalog = catalog
	} else {
		s.logger.Info("no schema file, enrichment disabled")
	}

	return s, nil
}

// Demuxer builds a demuxer over the prepared registries for the given
// source and sinks. Used by Run and by the one-shot CLI path.
func (s *Service) Demuxer(source pipeline.Source, sink, raw pipeline.Sink) *pipeline.Demuxer {
	return pipeline.NewDemuxer(
		s.parsers, s.normalizers, source, sink, raw,
		s.cfg.Pipeline.QueueCapacity, s.logger)
}

// Finalize enriches a translated tree and stamps its event identifier.
func (s *Service) Finalize(data map[string]any) map[string]any {
	if s.catalog != nil {
		data = s.catalog.Enrich(data)
	}
	return schema.AddUID(data)
}

// Run consumes raw envelopes from the bus until the context is
// cancelled, then drains the pipeline.
func (s *Service) Run(ctx context.Context) error {
	client, err := natsclient.NewClient(natsclient.Config{
		URL:           s.cfg.NATS.URL,
		Name:          s.cfg.NATS.Name,
		MaxReconnects: s.cfg.NATS.MaxReconnects,
		ReconnectWait: time.Duration(s.cfg.NATS.ReconnectWaitS) * time.Second,
		Timeout:       5 * time.Second,
	}, s.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	inlet := pipeline.NewQueue(s.cfg.Pipeline.QueueCapacity)

	metrics := NewMetrics(func() float64 { return float64(inlet.Available()) })

	translated := &publishSink{
		pub:       client,
		subject:   s.cfg.NATS.EventSubject,
		transform: s.Finalize,
		published: metrics.Translated,
		dropped:   metrics.Dropped,
		logger:    s.logger,
	}
	raw := &publishSink{
		pub:       client,
		subject:   s.cfg.NATS.RawSubject,
		published: metrics.Raw,
		dropped:   metrics.Dropped,
		logger:    s.logger,
	}

	// The demuxer worker must not be cancelled with the run context:
	// shutdown drains through EOS, and a cancelled worker would exit
	// before forwarding it.
	pipeCtx, cancelPipe := context.WithCancel(context.Background())
	defer cancelPipe()

	demux := s.Demuxer(inlet, translated, raw)
	demux.Start(pipeCtx)

	sub, err := client.QueueSubscribe(
		s.cfg.NATS.IngestSubject,
		s.cfg.NATS.IngestQueue,
		s.ingestHandler(pipeCtx, inlet, metrics),
	)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", s.cfg.NATS.IngestSubject, err)
	}

	if s.cfg.Metrics.Enabled {
		go metrics.Serve(ctx, s.cfg.Metrics.Addr, s.logger)
	}

	s.logger.Info("pipeline running",
		logging.Subject(s.cfg.NATS.IngestSubject),
		logging.Count(s.normalizers.Len()))

	<-ctx.Done()
	s.logger.Info("shutdown requested")

	// Stop intake, push EOS through, and wait for every worker.
	if err := sub.Unsubscribe(); err != nil {
		s.logger.Warn("unsubscribe failed", logging.Err(err))
	}
	if err := inlet.Put(pipeCtx, event.EOS()); err != nil {
		return err
	}
	demux.Wait()

	if err := client.Drain(); err != nil {
		s.logger.Warn("drain failed", logging.Err(err))
	}
	s.logger.Info("pipeline drained")
	return nil
}

// ingestHandler decodes one raw envelope and feeds it to the inlet
// queue, propagating backpressure to the bus consumer.
func (s *Service) ingestHandler(
	ctx context.Context,
	inlet *pipeline.Queue,
	metrics *Metrics,
) messaging.MessageHandler {
	return func(_ context.Context, msg *messaging.Message) error {
		data, err := event.DecodeJSON(msg.Data)
		if err != nil {
			metrics.Dropped.Inc()
			return fmt.Errorf("decode raw envelope: %w", err)
		}
		metrics.Ingested.Inc()
		return inlet.Put(ctx, event.New(data))
	}
}

// publishSink adapts the message bus to the pipeline Sink interface.
// EOS marks the upstream worker's termination and is not published.
type publishSink struct {
	pub       messaging.Publisher
	subject   string
	transform func(map[string]any) map[string]any

	published prometheus.Counter
	dropped   prometheus.Counter
	logger    *logging.Logger
}

// Put publishes the event data to the sink's subject. Publish failures
// are logged and counted; they never stop the upstream worker.
func (p *publishSink) Put(ctx context.Context, e *event.Event) error {
	if e.IsEOS() {
		return nil
	}

	data := e.Data()
	if p.transform != nil {
		data = p.transform(data)
	}

	if err := p.pub.PublishJSON(ctx, p.subject, data); err != nil {
		p.dropped.Inc()
		p.logger.Warn("publish failed", logging.Subject(p.subject), logging.Err(err))
		return nil
	}
	p.published.Inc()
	return nil
}
