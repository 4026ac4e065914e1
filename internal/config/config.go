// Package config provides the YAML configuration schema and loader for the
// transcoder CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to a slog level; unknown or empty values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MetricsExporter selects where run metrics are exported.
type MetricsExporter string

const (
	// MetricsNone records no metrics.
	MetricsNone MetricsExporter = "none"

	// MetricsStdout writes metrics as JSON to stderr when the run ends.
	MetricsStdout MetricsExporter = "stdout"
)

// IsValid reports whether m is a recognised exporter. Empty means none.
func (m MetricsExporter) IsValid() bool {
	switch m {
	case "", MetricsNone, MetricsStdout:
		return true
	}
	return false
}

// FLACConfig tunes the FLAC encoder.
type FLACConfig struct {
	// BlockSize is the number of samples per channel per FLAC frame.
	BlockSize int `yaml:"block_size"`
}

// Config is the top-level configuration.
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	// ChunkFrames is the number of sample frames per Frame emitted by
	// sources that choose their own framing; 0 emits a WAV data section as
	// a single Frame.
	ChunkFrames int `yaml:"chunk_frames"`

	// ChannelCapacity bounds the channel between the stages; 0 is unbounded.
	ChannelCapacity int `yaml:"channel_capacity"`

	FLAC FLACConfig `yaml:"flac"`

	// ProgressInterval is the period of progress log lines; 0 disables them.
	ProgressInterval time.Duration `yaml:"progress_interval"`

	Metrics MetricsExporter `yaml:"metrics"`
}

const (
	DefaultChunkFrames      = 4096
	DefaultFLACBlockSize    = 4096
	DefaultProgressInterval = 2 * time.Second

	minFLACBlockSize = 16
	maxFLACBlockSize = 65535
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:         LogInfo,
		ChunkFrames:      DefaultChunkFrames,
		FLAC:             FLACConfig{BlockSize: DefaultFLACBlockSize},
		ProgressInterval: DefaultProgressInterval,
		Metrics:          MetricsNone,
	}
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. Keys absent from the document keep their default values.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.ChunkFrames < 0 {
		errs = append(errs, fmt.Errorf("chunk_frames %d must not be negative", cfg.ChunkFrames))
	}
	if cfg.ChannelCapacity < 0 {
		errs = append(errs, fmt.Errorf("channel_capacity %d must not be negative", cfg.ChannelCapacity))
	}
	if bs := cfg.FLAC.BlockSize; bs < minFLACBlockSize || bs > maxFLACBlockSize {
		errs = append(errs, fmt.Errorf("flac.block_size %d is out of range [%d, %d]", bs, minFLACBlockSize, maxFLACBlockSize))
	}
	if cfg.ProgressInterval < 0 {
		errs = append(errs, fmt.Errorf("progress_interval %v must not be negative", cfg.ProgressInterval))
	}
	if !cfg.Metrics.IsValid() {
		errs = append(errs, fmt.Errorf("metrics %q is invalid; valid values: none, stdout", cfg.Metrics))
	}

	return errors.Join(errs...)
}
