package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"github.com/columnforge/partwriter/core"
)

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // e.g., "debug", "info", "warn", "error"
	Output string `yaml:"output"` // e.g., "stdout", "file", "none"
	File   string `yaml:"file"`   // Path to the log file, used if output is "file"
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // e.g., "localhost:4317" for gRPC OTLP collector
	Protocol string `yaml:"protocol"` // "grpc" or "http"
}

// DebugConfig holds debugging-related configurations.
type DebugConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ListenAddress  string `yaml:"listen_address"`
	PProfEnabled   bool   `yaml:"pprof_enabled"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// WriterConfig holds the on-disk part-writer tunables: granularity, the
// compression frame-size thresholds, the compression method, the
// direct-I/O size hint, and whether a commit blocks on fsync.
type WriterConfig struct {
	Granularity       int    `yaml:"granularity"`
	MinFrameBytes     int    `yaml:"min_frame_bytes"`
	MaxFrameBytes     int    `yaml:"max_frame_bytes"`
	CompressionMethod string `yaml:"compression_method"`
	AIOThresholdBytes int64  `yaml:"aio_threshold_bytes"`
	SyncOnFinalize    bool   `yaml:"sync_on_finalize"`
}

// CompressionType maps the configured compression method name to the
// core.CompressionType token the part package's streams use.
func (w WriterConfig) CompressionType() (core.CompressionType, error) {
	switch w.CompressionMethod {
	case "", "none":
		return core.CompressionNone, nil
	case "snappy":
		return core.CompressionSnappy, nil
	case "lz4":
		return core.CompressionLZ4, nil
	case "zstd":
		return core.CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("config: unknown compression_method %q", w.CompressionMethod)
	}
}

// Config is the top-level configuration struct.
type Config struct {
	Writer  WriterConfig  `yaml:"writer"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	Debug   DebugConfig   `yaml:"debug"`
}

// ParseDuration parses a duration string. Returns the default duration if the string is empty or invalid.
// Logs a warning if the string is invalid but not empty.
func ParseDuration(durationStr string, defaultDuration time.Duration, logger *slog.Logger) time.Duration {
	if durationStr == "" || durationStr == "0" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		if logger != nil {
			logger.Warn("Invalid duration format, using default", "input", durationStr, "default", defaultDuration.String(), "error", err)
		}
		return defaultDuration
	}
	return d
}

// Load reads configuration from an io.Reader.
// This is the core logic, separated for testability.
func Load(r io.Reader) (*Config, error) {
	// Set default values
	cfg := &Config{
		Writer: WriterConfig{
			Granularity:       8192,
			MinFrameBytes:     64 * 1024,
			MaxFrameBytes:     1 << 20,
			CompressionMethod: "lz4",
			AIOThresholdBytes: 0,
			SyncOnFinalize:    false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
			File:   "partwriter.log",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
		Debug: DebugConfig{
			Enabled:        false,
			ListenAddress:  "0.0.0.0:6060",
			PProfEnabled:   false,
			MetricsEnabled: false,
		},
	}

	// If the reader is nil, it's like an empty file, return defaults.
	if r == nil {
		return cfg, nil
	}

	// Read all data from the reader
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}

	// If data is empty, return defaults.
	if len(data) == 0 {
		return cfg, nil
	}

	// Unmarshal YAML into the config struct, overwriting defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// If file doesn't exist, return default config by calling Load with a nil reader.
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}
