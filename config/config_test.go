package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/columnforge/partwriter/core"
)

func TestLoad_ValidConfig(t *testing.T) {
	yamlContent := `
writer:
  granularity: 4096
  compression_method: "zstd"
logging:
  level: "warn"
`
	reader := strings.NewReader(yamlContent)
	cfg, err := Load(reader)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Check overridden values
	assert.Equal(t, 4096, cfg.Writer.Granularity)
	assert.Equal(t, "zstd", cfg.Writer.CompressionMethod)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Check a default value that was not overridden
	assert.Equal(t, 64*1024, cfg.Writer.MinFrameBytes)
}

func TestLoad_PartialConfig(t *testing.T) {
	yamlContent := `
writer:
  sync_on_finalize: true
`
	reader := strings.NewReader(yamlContent)
	cfg, err := Load(reader)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Check overridden value
	assert.True(t, cfg.Writer.SyncOnFinalize)
	// Check default values are still there
	assert.Equal(t, 8192, cfg.Writer.Granularity)
	assert.Equal(t, "lz4", cfg.Writer.CompressionMethod)
}

func TestLoad_EmptyReader(t *testing.T) {
	// Test with nil reader
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 8192, cfg.Writer.Granularity) // Check a default value

	// Test with empty string reader
	reader := strings.NewReader("")
	cfg, err = Load(reader)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 8192, cfg.Writer.Granularity) // Check a default value
}

func TestLoad_InvalidYAML(t *testing.T) {
	yamlContent := `
writer:
  granularity: 4096
  this: is: invalid: yaml
`
	reader := strings.NewReader(yamlContent)
	_, err := Load(reader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config yaml")
}

// TestLoadConfig_FileIntegration is a small integration test to ensure
// LoadConfig works correctly with the filesystem.
func TestLoadConfig_FileIntegration(t *testing.T) {
	t.Run("FileExists", func(t *testing.T) {
		yamlContent := `
writer:
  granularity: 2048
`
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.yaml")
		err := os.WriteFile(configPath, []byte(yamlContent), 0644)
		require.NoError(t, err)

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, 2048, cfg.Writer.Granularity)
	})

	t.Run("FileDoesNotExist", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "non_existent_config.yaml")

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		// Should return default value
		assert.Equal(t, 8192, cfg.Writer.Granularity)
	})
}

func TestParseDuration(t *testing.T) {
	// Use a logger that discards output for this test
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defaultDuration := 10 * time.Second

	testCases := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{"ValidSeconds", "5s", 5 * time.Second},
		{"ValidMilliseconds", "500ms", 500 * time.Millisecond},
		{"ValidMinutes", "2m", 2 * time.Minute},
		{"EmptyString", "", defaultDuration},
		{"ZeroString", "0", defaultDuration},
		{"InvalidString", "5x", defaultDuration},
		{"JustNumber", "10", defaultDuration},
		{"NilLogger", "5x", defaultDuration}, // Should not panic with nil logger
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var testLogger *slog.Logger
			if tc.name != "NilLogger" {
				testLogger = logger
			}
			result := ParseDuration(tc.input, defaultDuration, testLogger)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestWriterConfig_CompressionType(t *testing.T) {
	testCases := []struct {
		method   string
		expected core.CompressionType
	}{
		{"", core.CompressionNone},
		{"none", core.CompressionNone},
		{"snappy", core.CompressionSnappy},
		{"lz4", core.CompressionLZ4},
		{"zstd", core.CompressionZSTD},
	}
	for _, tc := range testCases {
		t.Run(tc.method, func(t *testing.T) {
			w := WriterConfig{CompressionMethod: tc.method}
			ct, err := w.CompressionType()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ct)
		})
	}

	w := WriterConfig{CompressionMethod: "bogus"}
	_, err := w.CompressionType()
	require.Error(t, err)
}
