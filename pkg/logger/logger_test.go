package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "entry=%s", buf.String())
	return entry
}

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithActor(ctx, "user-9", "manager")
	log.Error(ctx, "boom", errors.New("boom"))

	entry := decodeEntry(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "user-9", entry["user_id"])
	assert.Equal(t, "manager", entry["actor_role"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "test", entry["service"])
	assert.NotEmpty(t, entry["stack"])
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	assert.NotEmpty(t, decodeEntry(t, buf)["stack"])

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	_, hasStack := decodeEntry(t, buf)["stack"]
	assert.False(t, hasStack)
}

func TestLoggerLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.WarnLevel, Output: buf})
	log.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	parent := context.Background()
	_ = log.WithFields(parent, map[string]any{"sale_id": "s-1"})

	log.Info(parent, "plain")
	_, ok := decodeEntry(t, buf)["sale_id"]
	assert.False(t, ok)
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatConsole})
	log.Info(context.Background(), "hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	ctx := log.WithField(context.Background(), "k", "v")
	assert.NotPanics(t, func() { log.Error(ctx, "ignored", errors.New("x")) })
}
