package deepgram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// APIKeyEnvVar is the environment variable holding the Deepgram API key
const APIKeyEnvVar = "DEEPGRAM_API_KEY"

// DefaultEndpoint is the Deepgram live transcription endpoint
const DefaultEndpoint = "wss://api.deepgram.com/v1/listen"

// Config contains the live transcription session parameters
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Language    string
	SmartFormat bool
	Punctuate   bool
	Diarize     bool
	Encoding    string
	SampleRate  int
	Channels    int
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Encoding == "" {
		c.Encoding = "linear16"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 48000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
}

// buildURL assembles the endpoint URL with the session query parameters
func (c Config) buildURL() (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint %s: %w", c.Endpoint, err)
	}

	q := u.Query()
	q.Set("model", c.Model)
	q.Set("language", c.Language)
	q.Set("smart_format", strconv.FormatBool(c.SmartFormat))
	q.Set("punctuate", strconv.FormatBool(c.Punctuate))
	q.Set("diarize", strconv.FormatBool(c.Diarize))
	q.Set("encoding", c.Encoding)
	q.Set("sample_rate", strconv.Itoa(c.SampleRate))
	q.Set("channels", strconv.Itoa(c.Channels))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Stats holds cumulative counters for one live connection
type Stats struct {
	FramesSent  uint64 `json:"frames_sent"`
	BytesSent   uint64 `json:"bytes_sent"`
	Transcripts uint64 `json:"transcripts"`
	Errors      uint64 `json:"errors"`
}

// Client is one live transcription connection. Events are delivered on the
// Events channel in arrival order; the channel closing signals that the
// backend connection is gone.
type Client struct {
	conn   *websocket.Conn
	events chan Event
	logger *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once

	stats   Stats
	statsMu sync.Mutex
}

// Dial connects to the live transcription endpoint and starts the reader.
// The first event delivered is EventOpen.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	cfg.applyDefaults()

	endpoint, err := cfg.buildURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to transcription backend: %w", err)
	}

	client := &Client{
		conn:   conn,
		events: make(chan Event, 16),
		logger: logger,
	}

	logger.Debug("Backend connection established",
		slog.String("model", cfg.Model),
		slog.String("language", cfg.Language),
		slog.Int("sample_rate", cfg.SampleRate),
	)

	client.events <- Event{Type: EventOpen}
	go client.readLoop()

	return client, nil
}

// Events returns the backend event channel
func (c *Client) Events() <-chan Event {
	return c.events
}

// readLoop reads backend messages until the connection closes and forwards
// them as events
func (c *Client) readLoop() {
	defer close(c.events)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.countError()
				c.events <- Event{Type: EventError, Err: err}
			}
			return
		}

		event, err := decodeMessage(message)
		if err != nil {
			c.logger.Debug("Skipping undecodable backend message", slog.String("error", err.Error()))
			continue
		}
		if event == nil {
			continue
		}

		if event.Type == EventTranscript {
			c.statsMu.Lock()
			c.stats.Transcripts++
			c.statsMu.Unlock()
		}
		if event.Type == EventError {
			c.countError()
		}

		c.events <- *event
	}
}

// SendAudio forwards one raw PCM frame to the backend
func (c *Client) SendAudio(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to send audio frame: %w", err)
	}

	c.statsMu.Lock()
	c.stats.FramesSent++
	c.stats.BytesSent += uint64(len(frame))
	c.statsMu.Unlock()

	return nil
}

// Finish asks the backend to flush pending results and close the stream
func (c *Client) Finish() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("failed to send CloseStream: %w", err)
	}

	return nil
}

// Close tears down the backend connection. Safe to call multiple times; the
// reader exits and closes the events channel.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
	return nil
}

// GetStats returns a snapshot of the connection counters
func (c *Client) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *Client) countError() {
	c.statsMu.Lock()
	c.stats.Errors++
	c.statsMu.Unlock()
}
