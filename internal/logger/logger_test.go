package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func TestHandler_RequestIdAndSource(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "json", slog.LevelDebug, "/nonexistent", ctxKey{})
	require.NoError(t, err)

	l := slog.New(h).With(slog.String("component", "test")).WithGroup("g")
	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	l.InfoContext(ctx, "hello", slog.Int("n", 1))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "test", rec["component"])
	g, ok := rec["g"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "req-1", g["request_id"])
	assert.EqualValues(t, 1, g["n"])
	assert.NotNil(t, g[slog.SourceKey])
}

func TestHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "text", slog.LevelWarn, "", nil)
	require.NoError(t, err)

	l := slog.New(h)
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestHandler_InvalidFormat(t *testing.T) {
	_, err := NewHandler(&bytes.Buffer{}, "xml", slog.LevelInfo, "", nil)
	assert.Error(t, err)
}

func TestLevelOf(t *testing.T) {
	lvl, ok := levelOf(tracelog.LogLevelInfo)
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, ok = levelOf(tracelog.LogLevelError)
	assert.True(t, ok)
	assert.Equal(t, slog.LevelError, lvl)

	_, ok = levelOf(tracelog.LogLevel(42))
	assert.False(t, ok)
}

func TestAttrsOf(t *testing.T) {
	attrs := attrsOf(map[string]any{"sql": "select 1", "args": []any{1}, "pid": 7, "time": 3})

	require.Len(t, attrs, 2)
	assert.Equal(t, "sql", attrs[0].Key)
	assert.Equal(t, "time", attrs[1].Key)
}

func TestPGXTracer(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "text", slog.LevelDebug, "", nil)
	require.NoError(t, err)

	tl := NewPGXTracer(slog.New(h))
	tl.Logger.Log(context.Background(), tracelog.LogLevelInfo, "Query", map[string]any{"sql": "select 1", "args": []any{"secret"}})

	assert.Contains(t, buf.String(), "select 1")
	assert.NotContains(t, buf.String(), "secret")
}
