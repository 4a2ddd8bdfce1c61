package pipeline_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/event"
	"github.com/telhawk-systems/telhawk-normalize/internal/parsers"
	"github.com/telhawk-systems/telhawk-normalize/internal/pipeline"
	"github.com/telhawk-systems/telhawk-normalize/internal/translate"
)

// idParser parses the raw text as a decimal event id.
var idParser = parsers.Func(func(text string) (map[string]any, error) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": n}, nil
})

// idTranslators moves the id and leaves everything else for unmapped.
func idTranslators() *translate.Translators {
	manager := translate.NewTranslators("test")
	manager.Add(translate.Func(func(data map[string]any) map[string]any {
		id, ok := event.RemoveIn(data, []string{"id"})
		if !ok {
			return nil
		}
		return map[string]any{"id": id}
	}))
	return manager
}

func rawEvent(id int, sourceType string) *event.Event {
	return event.New(map[string]any{
		event.RawEvent:   strconv.Itoa(id),
		event.Tenant:     "Tenant",
		event.SourceType: sourceType,
	})
}

func TestProcessor_TranslatesInOrder(t *testing.T) {
	ctx := context.Background()
	in := pipeline.NewQueue(5)
	out := pipeline.NewQueue(5)

	proc := pipeline.NewProcessor("processor:test", idParser, idTranslators(), in, out, nil, logging.Default())
	proc.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, in.Put(ctx, rawEvent(i, "test")))
	}
	require.NoError(t, in.Put(ctx, event.EOS()))

	for i := 0; i < 5; i++ {
		e, err := out.Take(ctx)
		require.NoError(t, err)

		data := e.Data()
		assert.Equal(t, i, data["id"])

		source, ok := event.GetPath(data, "unmapped.sourceType")
		require.True(t, ok)
		assert.Equal(t, "test", source)

		tenant, _ := event.GetPath(data, "unmapped.tenant")
		assert.Equal(t, "Tenant", tenant)

		raw, _ := event.GetPath(data, "unmapped.rawEvent")
		assert.Equal(t, strconv.Itoa(i), raw)
	}

	e, err := out.Take(ctx)
	require.NoError(t, err)
	assert.True(t, e.IsEOS())
	assert.Equal(t, 0, out.Available())
}

func TestProcessor_UnclaimedKeysLandInUnmapped(t *testing.T) {
	parser := parsers.Func(func(text string) (map[string]any, error) {
		return map[string]any{"id": 1, "extra": "left behind"}, nil
	})

	out, err := pipeline.Normalize(parser, idTranslators(), map[string]any{
		event.RawEvent:   "anything",
		event.SourceType: "test",
	})
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, 1, out["id"])
	extra, ok := event.GetPath(out, "unmapped.extra")
	require.True(t, ok)
	assert.Equal(t, "left behind", extra)
	_, claimed := event.GetPath(out, "unmapped.id")
	assert.False(t, claimed, "claimed keys do not ride along")
}

func TestProcessor_ParseFailureDrops(t *testing.T) {
	ctx := context.Background()
	in := pipeline.NewQueue(5)
	out := pipeline.NewQueue(5)

	proc := pipeline.NewProcessor("processor:test", idParser, idTranslators(), in, out, nil, logging.Default())
	proc.Start(ctx)

	require.NoError(t, in.Put(ctx, event.New(map[string]any{
		event.RawEvent:   "not a number",
		event.SourceType: "test",
	})))
	require.NoError(t, in.Put(ctx, rawEvent(1, "test")))
	require.NoError(t, in.Put(ctx, event.EOS()))

	e, err := out.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Data()["id"], "bad event dropped, stream continues")

	e, err = out.Take(ctx)
	require.NoError(t, err)
	assert.True(t, e.IsEOS())
}

func TestProcessor_MissingRawEventDrops(t *testing.T) {
	out, err := pipeline.Normalize(idParser, idTranslators(), map[string]any{
		event.SourceType: "test",
	})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestProcessor_TranslateMissGoesToRawSink(t *testing.T) {
	ctx := context.Background()
	in := pipeline.NewQueue(5)
	out := pipeline.NewQueue(5)
	raw := pipeline.NewQueue(5)

	noMatch := translate.NewTranslators("test")
	noMatch.Add(translate.Func(func(map[string]any) map[string]any { return nil }))

	proc := pipeline.NewProcessor("processor:test", idParser, noMatch, in, out, raw, logging.Default())
	proc.Start(ctx)

	require.NoError(t, in.Put(ctx, rawEvent(3, "test")))
	require.NoError(t, in.Put(ctx, event.EOS()))

	e, err := raw.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", e.Data()[event.RawEvent], "original event forwarded untouched")

	e, err = out.Take(ctx)
	require.NoError(t, err)
	assert.True(t, e.IsEOS())
}

func TestNormalize_ParseError(t *testing.T) {
	failing := parsers.Func(func(string) (map[string]any, error) {
		return nil, errors.New("broken record")
	})

	_, err := pipeline.Normalize(failing, idTranslators(), map[string]any{
		event.RawEvent: "x",
	})
	assert.Error(t, err)
}
