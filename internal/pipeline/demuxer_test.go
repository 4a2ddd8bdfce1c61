package pipeline_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/event"
	"github.com/telhawk-systems/telhawk-normalize/internal/fuzzy"
	"github.com/telhawk-systems/telhawk-normalize/internal/parsers"
	"github.com/telhawk-systems/telhawk-normalize/internal/pipeline"
	"github.com/telhawk-systems/telhawk-normalize/internal/translate"
)

func newDemuxer(
	t *testing.T,
	in, out, raw *pipeline.Queue,
	sourceTypes ...string,
) *pipeline.Demuxer {
	t.Helper()

	parserRegistry := fuzzy.New[parsers.Parser]("")
	normalizers := fuzzy.New[*translate.Translators]("")
	for _, st := range sourceTypes {
		parserRegistry.Put(st, idParser)
		normalizers.Put(st, idTranslators())
	}

	return pipeline.NewDemuxer(parserRegistry, normalizers, in, out, raw, 5, logging.Default())
}

func TestDemuxer_TwoSourceTypes(t *testing.T) {
	ctx := context.Background()
	in := pipeline.NewQueue(0)
	out := pipeline.NewQueue(0)
	raw := pipeline.NewQueue(0)

	d := newDemuxer(t, in, out, raw, "syslog:1", "syslog:2")
	d.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, in.Put(ctx, rawEvent(i, "syslog:1")))
		require.NoError(t, in.Put(ctx, rawEvent(i, "syslog:2")))
	}
	require.NoError(t, in.Put(ctx, event.EOS()))

	// Per-source order is preserved; the interleaving across sources is
	// arbitrary.
	next := map[string]int{}
	eosSeen := 0
	for eosSeen < 2 {
		e, err := out.Take(ctx)
		require.NoError(t, err)
		if e.IsEOS() {
			eosSeen++
			continue
		}

		data := e.Data()
		source, ok := event.GetPath(data, "unmapped.sourceType")
		require.True(t, ok)
		st := source.(string)
		assert.Contains(t, []string{"syslog:1", "syslog:2"}, st)
		assert.Equal(t, next[st], data["id"], "per-source order preserved")
		next[st]++
	}

	assert.Equal(t, 5, next["syslog:1"])
	assert.Equal(t, 5, next["syslog:2"])

	d.Wait()
	assert.Equal(t, 0, out.Available())
	// Demuxer termination forwards EOS to the raw side-channel too.
	e, err := raw.Take(ctx)
	require.NoError(t, err)
	assert.True(t, e.IsEOS())
	assert.Equal(t, 0, raw.Available())
}

func TestDemuxer_FuzzySourceType(t *testing.T) {
	ctx := context.Background()
	in := pipeline.NewQueue(0)
	out := pipeline.NewQueue(0)
	raw := pipeline.NewQueue(0)

	d := newDemuxer(t, in, out, raw, "syslog")
	d.Start(ctx)

	require.NoError(t, in.Put(ctx, rawEvent(0, "syslog:firewall:7")))
	require.NoError(t, in.Put(ctx, event.EOS()))

	e, err := out.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Data()["id"])

	source, _ := event.GetPath(e.Data(), "unmapped.sourceType")
	assert.Equal(t, "syslog:firewall:7", source, "original source type is preserved")

	d.Wait()
}

func TestDemuxer_MissingSourceTypeGoesRaw(t *testing.T) {
	ctx := context.Background()
	in := pipeline.NewQueue(0)
	out := pipeline.NewQueue(0)
	raw := pipeline.NewQueue(0)

	d := newDemuxer(t, in, out, raw, "syslog")
	d.Start(ctx)

	require.NoError(t, in.Put(ctx, event.New(map[string]any{event.RawEvent: "0"})))
	require.NoError(t, in.Put(ctx, event.EOS()))

	e, err := raw.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", e.Data()[event.RawEvent])

	d.Wait()
}

func TestDemuxer_UnknownSourceTypeGoesRaw(t *testing.T) {
	ctx := context.Background()
	in := pipeline.NewQueue(0)
	out := pipeline.NewQueue(0)
	raw := pipeline.NewQueue(0)

	d := newDemuxer(t, in, out, raw, "syslog")
	d.Start(ctx)

	require.NoError(t, in.Put(ctx, rawEvent(0, "wineventlog:security")))
	require.NoError(t, in.Put(ctx, rawEvent(1, "wineventlog:security")))
	require.NoError(t, in.Put(ctx, event.EOS()))

	for i := 0; i < 2; i++ {
		e, err := raw.Take(ctx)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(i), e.Data()[event.RawEvent])
	}

	d.Wait()
	assert.Equal(t, 0, out.Available())
}

func TestDemuxer_DrainOnEOS(t *testing.T) {
	ctx := context.Background()
	in := pipeline.NewQueue(0)
	out := pipeline.NewQueue(0)
	raw := pipeline.NewQueue(0)

	d := newDemuxer(t, in, out, raw, "syslog")
	d.Start(ctx)

	const total = 50
	go func() {
		for i := 0; i < total; i++ {
			_ = in.Put(ctx, rawEvent(i, "syslog"))
		}
		_ = in.Put(ctx, event.EOS())
	}()

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()

	count := 0
	for {
		e, err := out.Take(ctx)
		require.NoError(t, err)
		if e.IsEOS() {
			break
		}
		assert.Equal(t, count, e.Data()["id"], "events emitted in input order")
		count++
	}
	assert.Equal(t, total, count)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("demuxer did not drain after EOS")
	}
}

func TestDemuxer_ProcessOne(t *testing.T) {
	in := pipeline.NewQueue(1)
	out := pipeline.NewQueue(1)
	raw := pipeline.NewQueue(1)

	d := newDemuxer(t, in, out, raw, "syslog")

	t.Run("translates synchronously", func(t *testing.T) {
		result := d.ProcessOne(map[string]any{
			event.RawEvent:   "42",
			event.SourceType: "syslog:1",
		})
		require.NotNil(t, result)
		assert.Equal(t, 42, result["id"])
	})

	t.Run("unknown source type", func(t *testing.T) {
		assert.Nil(t, d.ProcessOne(map[string]any{
			event.RawEvent:   "42",
			event.SourceType: "wineventlog",
		}))
	})

	t.Run("missing source type", func(t *testing.T) {
		assert.Nil(t, d.ProcessOne(map[string]any{event.RawEvent: "42"}))
	})

	t.Run("parse failure", func(t *testing.T) {
		assert.Nil(t, d.ProcessOne(map[string]any{
			event.RawEvent:   "not a number",
			event.SourceType: "syslog",
		}))
	})
}
