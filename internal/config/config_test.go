package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromReader_Valid(t *testing.T) {
	const doc = `
log_level: debug
chunk_frames: 1024
channel_capacity: 16
flac:
  block_size: 1152
progress_interval: 500ms
metrics: stdout
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.ChunkFrames != 1024 {
		t.Errorf("ChunkFrames = %d, want 1024", cfg.ChunkFrames)
	}
	if cfg.ChannelCapacity != 16 {
		t.Errorf("ChannelCapacity = %d, want 16", cfg.ChannelCapacity)
	}
	if cfg.FLAC.BlockSize != 1152 {
		t.Errorf("FLAC.BlockSize = %d, want 1152", cfg.FLAC.BlockSize)
	}
	if cfg.ProgressInterval != 500*time.Millisecond {
		t.Errorf("ProgressInterval = %v, want 500ms", cfg.ProgressInterval)
	}
	if cfg.Metrics != MetricsStdout {
		t.Errorf("Metrics = %q, want stdout", cfg.Metrics)
	}
}

func TestLoadFromReader_EmptyUsesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("got %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadFromReader_PartialKeepsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("chunk_frames: 0\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.ChunkFrames != 0 {
		t.Errorf("ChunkFrames = %d, want 0", cfg.ChunkFrames)
	}
	if cfg.FLAC.BlockSize != DefaultFLACBlockSize {
		t.Errorf("FLAC.BlockSize = %d, want default", cfg.FLAC.BlockSize)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("sample_rate: 48000\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative chunk", func(c *Config) { c.ChunkFrames = -1 }, "chunk_frames"},
		{"negative capacity", func(c *Config) { c.ChannelCapacity = -4 }, "channel_capacity"},
		{"small block", func(c *Config) { c.FLAC.BlockSize = 8 }, "flac.block_size"},
		{"large block", func(c *Config) { c.FLAC.BlockSize = 70000 }, "flac.block_size"},
		{"negative interval", func(c *Config) { c.ProgressInterval = -time.Second }, "progress_interval"},
		{"unknown metrics exporter", func(c *Config) { c.Metrics = "prometheus" }, "metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.ChunkFrames = -1
	cfg.ChannelCapacity = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if msg := err.Error(); !strings.Contains(msg, "chunk_frames") || !strings.Contains(msg, "channel_capacity") {
		t.Errorf("joined error missing a failure: %q", msg)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel.Level() != slog.LevelWarn {
		t.Errorf("Level = %v, want warn", cfg.LogLevel.Level())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want slog.Level
	}{
		{LogDebug, slog.LevelDebug},
		{LogInfo, slog.LevelInfo},
		{LogWarn, slog.LevelWarn},
		{LogError, slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := tt.in.Level(); got != tt.want {
			t.Errorf("LogLevel(%q).Level() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
