package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// GetTestLogger returns a development logger that only emits errors so test
// output stays readable.
func GetTestLogger(t *testing.T) *zap.Logger {
	t.Helper()

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)

	logger, err := cfg.Build()
	require.NoError(t, err)

	return logger.Named(t.Name())
}
