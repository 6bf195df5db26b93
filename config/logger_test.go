package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		log     Log
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{"json info", Log{Level: "info", Format: "json"}, zapcore.InfoLevel, zapcore.DebugLevel},
		{"console debug", Log{Level: "debug", Format: "console"}, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"error", Log{Level: "error"}, zapcore.ErrorLevel, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := tt.log.NewLogger()
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.off))
		})
	}

	t.Run("invalid level", func(t *testing.T) {
		_, err := Log{Level: "loud", Format: "json"}.NewLogger()
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := Log{Level: "info", Format: "xml"}.NewLogger()
		assert.Error(t, err)
	})
}
