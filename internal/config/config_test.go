package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:                  5000,
			BindAddress:           "0.0.0.0",
			MaxConcurrentSessions: 100,
		},
		Audio: AudioConfig{
			SampleRate: 48000,
			Channels:   1,
			BitDepth:   16,
		},
		Deepgram: DeepgramConfig{
			Endpoint:    "wss://api.deepgram.com/v1/listen",
			Model:       "nova-3",
			Language:    "en-US",
			SmartFormat: true,
			Punctuate:   true,
			Diarize:     true,
			OpenTimeout: 10,
		},
		Storage: StorageConfig{
			Enabled:        true,
			AudioDir:       "public/audio",
			TranscriptPath: "public/transcript/transcripts.csv",
			ReportPath:     "qualityReport.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:        "invalid server port",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name:        "empty bind address",
			mutate:      func(c *Config) { c.Server.BindAddress = "" },
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
		{
			name:        "stereo audio rejected",
			mutate:      func(c *Config) { c.Audio.Channels = 2 },
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name:        "unsupported bit depth",
			mutate:      func(c *Config) { c.Audio.BitDepth = 8 },
			expectError: true,
			errorMsg:    "bit_depth must be 16",
		},
		{
			name:        "missing deepgram model",
			mutate:      func(c *Config) { c.Deepgram.Model = "" },
			expectError: true,
			errorMsg:    "model cannot be empty",
		},
		{
			name:        "negative open timeout",
			mutate:      func(c *Config) { c.Deepgram.OpenTimeout = -1 },
			expectError: true,
			errorMsg:    "open_timeout cannot be negative",
		},
		{
			name: "storage enabled without audio dir",
			mutate: func(c *Config) {
				c.Storage.AudioDir = ""
			},
			expectError: true,
			errorMsg:    "audio_dir cannot be empty",
		},
		{
			name: "storage disabled skips path checks",
			mutate: func(c *Config) {
				c.Storage = StorageConfig{Enabled: false}
			},
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected validation error containing %q, got nil", tt.errorMsg)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	content := `
server:
  port: 5000
  bind_address: "0.0.0.0"
  max_concurrent_sessions: 50
audio:
  sample_rate: 48000
  channels: 1
  bit_depth: 16
deepgram:
  endpoint: "wss://api.deepgram.com/v1/listen"
  model: "nova-3"
  language: "en-US"
  smart_format: true
  punctuate: true
  diarize: true
  open_timeout: 10.0
storage:
  enabled: true
  audio_dir: "public/audio"
  transcript_path: "public/transcript/transcripts.csv"
  report_path: "qualityReport.json"
logging:
  level: "debug"
  format: "text"
  output: "stderr"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("expected port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Deepgram.Model != "nova-3" {
		t.Errorf("expected model nova-3, got %s", cfg.Deepgram.Model)
	}
	if !cfg.Deepgram.Diarize {
		t.Error("expected diarize to be enabled")
	}
	if got := cfg.Deepgram.GetOpenTimeout(); got != 10*time.Second {
		t.Errorf("expected open timeout 10s, got %v", got)
	}
	if cfg.Audio.BlockAlign() != 2 {
		t.Errorf("expected block align 2, got %d", cfg.Audio.BlockAlign())
	}
	if cfg.Audio.BytesPerSecond() != 96000 {
		t.Errorf("expected 96000 bytes per second, got %d", cfg.Audio.BytesPerSecond())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
