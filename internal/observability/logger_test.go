package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"text alias", "WARN", "text", false},
		{"empty format defaults to json", "error", "", false},
		{"bad level", "loud", "json", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger("warn", "json")
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	t.Run("falls back to base", func(t *testing.T) {
		assert.Equal(t, base, FromContext(context.Background(), base))
	})

	t.Run("nil base gives a no-op logger", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background(), nil))
	})

	t.Run("request scoped logger", func(t *testing.T) {
		scoped := base.With(zap.String("request_id", "req-1"))
		ctx := WithLogger(context.Background(), scoped)

		FromContext(ctx, zap.NewNop()).Info("hello")

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "req-1", logs.All()[0].ContextMap()["request_id"])
	})
}
