package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		log := New(tt.level, "development")
		assert.True(t, log.Core().Enabled(tt.want), "level %q", tt.level)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, log.Core().Enabled(tt.want-1), "level %q", tt.level)
		}
	}
}

func TestNewProduction(t *testing.T) {
	log := New("info", "production")
	assert.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
