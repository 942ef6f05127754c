package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	l, err := New(Config{Level: "info", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestContextFieldsAreAttached(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithCaller(WithRequestID(context.Background(), "req-1"), 42)

	tl.Info(ctx, "tracker created", zap.Int("tracker.id", 7))

	entries := tl.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request.id"])
	assert.EqualValues(t, 42, fields["caller.id"])
	assert.EqualValues(t, 7, fields["tracker.id"])
	tl.AssertLogged(t, zapcore.InfoLevel, "tracker created")
}
