package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"trace", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup(Options{Level: "info", Output: &buf})
	require.NoError(t, err)

	log.Info("listed nodes", "count", 2)
	log.V(1).Info("hidden at info")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "listed nodes", entry["msg"])
	assert.Equal(t, float64(2), entry["count"])
}

func TestSetup_DebugEnablesV1(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup(Options{Level: "debug", Development: true, Output: &buf})
	require.NoError(t, err)

	log.V(1).Info("operation finished", "success", true)
	assert.Contains(t, buf.String(), "operation finished")
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(Options{Level: "chatty"})
	assert.Error(t, err)
}
