package observability

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextRoundTrip(t *testing.T) {
	reqCtx := NewRequestContext(slog.Default(), "deepseek", "user-1")
	require.NotEmpty(t, reqCtx.RequestID)

	ctx := WithRequestContext(context.Background(), reqCtx)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestRequestContextLogFields(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reqCtx := NewRequestContext(logger, "gemini", "user-2")
	reqCtx.Info("chat request", slog.Int(LogFieldMessageLen, 12))

	out := buf.String()
	assert.Contains(t, out, LogFieldRequestID)
	assert.Contains(t, out, "user-2")
	assert.Contains(t, out, "gemini")
	assert.Contains(t, out, LogFieldMessageLen)
}

func TestRequestContextDuration(t *testing.T) {
	reqCtx := NewRequestContext(slog.Default(), "openai", "user-3")
	assert.GreaterOrEqual(t, reqCtx.DurationMs(), int64(0))
}
