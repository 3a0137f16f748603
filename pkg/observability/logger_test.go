package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{"debug", "debug", logrus.DebugLevel},
		{"warn", "warn", logrus.WarnLevel},
		{"unknown falls back to info", "loud", logrus.InfoLevel},
		{"empty falls back to info", "", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.level, "text", &bytes.Buffer{})
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", "json", &buf)

	logger.WithField("module", "manifest").Info("Module initialized")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "manifest", entry["module"])
	assert.Equal(t, "Module initialized", entry["msg"])
}

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", "text", &buf)

	func() {
		defer RecoverPanic(logger, "terminate")
		panic("boom")
	}()

	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), "terminate")
}

func TestCallSafely(t *testing.T) {
	err := CallSafely(func() error { panic("boom") })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "boom")

	sentinel := errors.New("plain")
	assert.ErrorIs(t, CallSafely(func() error { return sentinel }), sentinel)
	assert.NotErrorIs(t, CallSafely(func() error { return sentinel }), ErrPanic)
	assert.NoError(t, CallSafely(func() error { return nil }))
}
