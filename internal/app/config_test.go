package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name     string
		in       Config
		expected *Config
		errText  string
	}{
		{
			name:     "defaults",
			in:       Config{ConfigPaths: []string{"apps.hcl"}},
			expected: &Config{ConfigPaths: []string{"apps.hcl"}, LogFormat: "text", LogLevel: "info", WorkerCount: 1},
		},
		{
			name:     "normalizes case",
			in:       Config{ConfigPaths: []string{"apps.hcl"}, LogFormat: "JSON", LogLevel: "Debug", WorkerCount: 8},
			expected: &Config{ConfigPaths: []string{"apps.hcl"}, LogFormat: "json", LogLevel: "debug", WorkerCount: 8},
		},
		{
			name:    "no paths",
			in:      Config{},
			errText: "at least one configuration path is required",
		},
		{
			name:    "bad format",
			in:      Config{ConfigPaths: []string{"x"}, LogFormat: "xml"},
			errText: "invalid log-format",
		},
		{
			name:    "bad level",
			in:      Config{ConfigPaths: []string{"x"}, LogLevel: "trace"},
			errText: "invalid log-level",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.in)
			if tc.errText != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errText)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, cfg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}
