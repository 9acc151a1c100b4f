package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	req := require.New(t)
	req.Equal(zapcore.DebugLevel, parseLevel("debug"))
	req.Equal(zapcore.WarnLevel, parseLevel(" WARN "))
	req.Equal(zapcore.ErrorLevel, parseLevel("error"))
	req.Equal(zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNopLoggerWith(t *testing.T) {
	log := NewNop().With("component", "test")
	log.Info("ignored", "key", "value")
	require.NotNil(t, log)
}
