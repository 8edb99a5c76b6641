package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Audio    AudioConfig    `yaml:"audio"`
	Deepgram DeepgramConfig `yaml:"deepgram"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains WebSocket/HTTP server configuration
type ServerConfig struct {
	Port                  int    `yaml:"port"`
	BindAddress           string `yaml:"bind_address"`
	MaxConcurrentSessions int    `yaml:"max_concurrent_sessions"`
}

// AudioConfig contains the PCM format accepted from clients
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// DeepgramConfig contains the live transcription connection parameters.
// The API key itself is taken from the environment, never from YAML.
type DeepgramConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Language    string  `yaml:"language"`
	SmartFormat bool    `yaml:"smart_format"`
	Punctuate   bool    `yaml:"punctuate"`
	Diarize     bool    `yaml:"diarize"`
	OpenTimeout float64 `yaml:"open_timeout"` // seconds, 0 disables
}

// StorageConfig contains the on-disk persistence configuration
type StorageConfig struct {
	Enabled        bool   `yaml:"enabled"`
	AudioDir       string `yaml:"audio_dir"`
	TranscriptPath string `yaml:"transcript_path"`
	ReportPath     string `yaml:"report_path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Deepgram.Validate(); err != nil {
		return fmt.Errorf("deepgram config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.MaxConcurrentSessions < 1 {
		return fmt.Errorf("max_concurrent_sessions must be at least 1, got %d", s.MaxConcurrentSessions)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 {
		return fmt.Errorf("sample_rate must be at least 8000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates Deepgram configuration
func (d *DeepgramConfig) Validate() error {
	if d.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if d.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if d.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if d.OpenTimeout < 0 {
		return fmt.Errorf("open_timeout cannot be negative, got %f", d.OpenTimeout)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if !s.Enabled {
		return nil
	}

	if s.AudioDir == "" {
		return fmt.Errorf("audio_dir cannot be empty when storage is enabled")
	}

	if s.TranscriptPath == "" {
		return fmt.Errorf("transcript_path cannot be empty when storage is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// BlockAlign returns the size of one sample-frame in bytes
func (a *AudioConfig) BlockAlign() int {
	return a.Channels * a.BitDepth / 8
}

// BytesPerSecond returns the PCM byte rate of the configured audio format
func (a *AudioConfig) BytesPerSecond() int {
	return a.SampleRate * a.BlockAlign()
}

// GetOpenTimeout returns the backend open timeout as a time.Duration
func (d *DeepgramConfig) GetOpenTimeout() time.Duration {
	return time.Duration(d.OpenTimeout * float64(time.Second))
}
