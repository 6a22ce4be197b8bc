package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_LevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "decrypted with fallback key", "position", 1)
	log.Error(ctx, "err", "d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)

	assert.Equal(t, "decrypted with fallback key", entries[2].Message)
	assert.Equal(t, int64(1), entries[2].ContextMap()["position"])
}

func TestZapLogger_With_AddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapLogger(zap.New(core)).With("job", "reencrypt")

	log.Info(context.Background(), "batch done", "succeeded", 3)

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "reencrypt", fields["job"])
	assert.Equal(t, int64(3), fields["succeeded"])
}

func TestNew_SelectsImplementation(t *testing.T) {
	l, err := New("slog")
	require.NoError(t, err)
	assert.IsType(t, &SlogLogger{}, l)

	l, err = New("zap")
	require.NoError(t, err)
	assert.IsType(t, &ZapLogger{}, l)

	l, err = New("logrus")
	require.NoError(t, err)
	assert.IsType(t, &LogrusLogger{}, l)

	l, err = New("")
	require.NoError(t, err)
	assert.IsType(t, &SlogLogger{}, l)

	_, err = New("xml")
	assert.ErrorContains(t, err, `unknown log format "xml"`)
}
