package logging_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "bogus", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, logging.ParseLevel(tc.input))
		})
	}
}

func TestNew(t *testing.T) {
	assert.NotNil(t, logging.New(slog.LevelInfo, "json").Logger)
	assert.NotNil(t, logging.New(slog.LevelDebug, "text").Logger)
}

func TestWith(t *testing.T) {
	base := logging.Default()
	derived := base.With(logging.Component("demuxer"))
	assert.NotNil(t, derived)
	assert.NotSame(t, base, derived)
}
