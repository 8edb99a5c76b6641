// Package config provides configuration loading and validation for the STT relay service.
// It handles YAML-based configuration with per-section struct validation covering the
// server, audio format, Deepgram connection, storage, and logging parameters.
package config
