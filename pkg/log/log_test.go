package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	ctx := context.Background()

	l1 := Ctx(ctx)
	require.NotNil(t, l1)
	assert.Equal(t, defaultLogger, l1)

	var buf bytes.Buffer
	custom := New(&buf)
	ctx = With(ctx, custom)
	assert.Equal(t, custom, Ctx(ctx))

	ctx = WithAttrs(ctx, slog.String("requestID", "abc"))
	Ctx(ctx).InfoContext(ctx, "analyzed", slog.Int("readings", 24))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "analyzed", rec["msg"])
	assert.Equal(t, "abc", rec["requestID"])
	assert.Equal(t, float64(24), rec["readings"])
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(slog.LevelInfo)

	var buf bytes.Buffer
	l := New(&buf)
	SetLevel(slog.LevelWarn)
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	SetLevel(slog.LevelDebug)
	l.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
