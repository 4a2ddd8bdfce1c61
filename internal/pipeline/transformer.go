package pipeline

import (
	"context"
	"fmt"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/event"
)

// ProcessFunc turns one event into another. Returning nil drops the event
// (or signals that it was forwarded elsewhere). Returning an error drops
// the event and logs it; the worker keeps running.
type ProcessFunc func(ctx context.Context, e *event.Event) (*event.Event, error)

// Transformer is a long-lived worker that drains a Source, applies a
// process function, and forwards non-nil results to a Sink. On taking the
// end-of-stream sentinel it runs its terminated hook and exits.
type Transformer struct {
	name       string
	source     Source
	sink       Sink
	process    ProcessFunc
	terminated func(ctx context.Context)

	logger *logging.Logger
	done   chan struct{}
}

// NewTransformer builds a worker around the given process function. The
// terminated hook may be nil; the default propagates EOS to the sink.
func NewTransformer(
	name string,
	source Source,
	sink Sink,
	process ProcessFunc,
	terminated func(ctx context.Context),
	logger *logging.Logger,
) *Transformer {
	t := &Transformer{
		name:       name,
		source:     source,
		sink:       sink,
		process:    process,
		terminated: terminated,
		logger:     logger.With(logging.Component(name)),
		done:       make(chan struct{}),
	}
	if t.terminated == nil {
		t.terminated = t.propagateEOS
	}
	return t
}

// Start runs the worker loop on a new goroutine.
func (t *Transformer) Start(ctx context.Context) {
	go t.run(ctx)
}

// Done is closed when the worker has exited.
func (t *Transformer) Done() <-chan struct{} {
	return t.done
}

func (t *Transformer) run(ctx context.Context) {
	defer close(t.done)

	for {
		e, err := t.source.Take(ctx)
		if err != nil {
			// Cancelled mid-wait: exit without forwarding EOS.
			t.logger.Info("worker interrupted", logging.Err(err))
			return
		}

		if e.IsEOS() {
			t.terminated(ctx)
			return
		}

		out, err := t.apply(ctx, e)
		if err != nil {
			t.logger.Warn("event dropped", logging.Err(err))
			continue
		}
		if out == nil {
			continue
		}
		if err := t.sink.Put(ctx, out); err != nil {
			t.logger.Info("worker interrupted", logging.Err(err))
			return
		}
	}
}

// apply shields the worker loop from panicking process functions; a
// panic drops the event like any other per-event failure.
func (t *Transformer) apply(ctx context.Context, e *event.Event) (out *event.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic in process: %v", r)
		}
	}()
	return t.process(ctx, e)
}

// propagateEOS is the default terminated hook.
func (t *Transformer) propagateEOS(ctx context.Context) {
	if err := t.sink.Put(ctx, event.EOS()); err != nil {
		t.logger.Info("shutdown interrupted", logging.Err(err))
	}
}
