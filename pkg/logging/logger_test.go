package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climate-test", "1.0.0", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "[DEBUG] hidden", nil)
	logger.Info(ctx, "[INFO] hidden", nil)
	logger.Warn(ctx, "[WARN] shown", Fields{"indicator": "Forest area"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "climate-test", entries[0].Service)
	assert.Equal(t, "Forest area", entries[0].Fields["indicator"])
}

func TestStructuredLogger_ContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climate-test", "1.0.0", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithSessionID(WithRequestID(context.Background(), "req-42"), "sess-7")
	logger.Info(ctx, "[QUERY] served", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].RequestID)
	assert.Equal(t, "sess-7", entries[0].SessionID)
	assert.Equal(t, "req-42", RequestID(ctx))
}

func TestStructuredLogger_ErrorCarriesCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climate-test", "1.0.0", InfoLevel)
	logger.SetOutput(&buf)

	logger.Error(context.Background(), "[LOAD_ERROR] failed", Fields{}, errors.New("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].Error)
	assert.NotEmpty(t, entries[0].File)
	assert.NotZero(t, entries[0].Line)
}

func TestStructuredLogger_FatalExits(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climate-test", "1.0.0", InfoLevel)
	logger.SetOutput(&buf)

	code := -1
	logger.exit = func(c int) { code = c }
	logger.Fatal(context.Background(), "[STARTUP_ERROR] no data", Fields{}, errors.New("missing"))

	assert.Equal(t, 1, code)
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].StackTrace)
}

func TestContextLogger_MergeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climate-test", "1.0.0", DebugLevel)
	logger.SetOutput(&buf)

	cl := logger.WithFields(Fields{"component": "loader", "source": "a.csv"})
	cl.Info(context.Background(), "[LOAD] done", Fields{"source": "b.csv"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "loader", entries[0].Fields["component"])
	assert.Equal(t, "b.csv", entries[0].Fields["source"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Error(context.Background(), "[X] ignored", nil, errors.New("ignored"))
}
