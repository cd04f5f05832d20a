package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/logger"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithFormat(logger.FormatJSON),
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "hookrelay-worker")),
	)

	log.Info("dispatch complete", logger.EndpointID("ep_123"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatch complete", entry["msg"])
	assert.Equal(t, "hookrelay-worker", entry["service"])
	assert.Equal(t, "ep_123", entry["endpoint_id"])
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithLevel(slog.LevelWarn),
		logger.WithOutput(&buf),
	)

	log.Info("not logged")
	assert.Zero(t, buf.Len())

	log.Warn("logged")
	assert.NotZero(t, buf.Len())
}

func TestNew_ContextExtractors(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
			if v, ok := ctx.Value(ctxKey{}).(string); ok {
				return slog.String("org_id", v), true
			}
			return slog.Attr{}, false
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "org_42")
	log.InfoContext(ctx, "with context")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "org_42", entry["org_id"])
}

func TestError_NilSafe(t *testing.T) {
	t.Parallel()

	attr := logger.Error(nil)
	assert.True(t, attr.Equal(slog.Attr{}))
}
