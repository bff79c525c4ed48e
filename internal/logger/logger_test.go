package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", true)

	log.Info().Msg("hidden")
	log.Warn().Str("state", "OPEN").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "state=OPEN")
}

func TestNewServiceOmitsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", true)
	log.Info().Msg("started")

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "INF"), "expected level first, got %q", line)
}

func TestIsServiceFromEnv(t *testing.T) {
	t.Setenv("INVOCATION_ID", "abc123")
	assert.True(t, IsService())
}
