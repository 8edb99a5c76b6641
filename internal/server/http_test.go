package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/preetiguragol/asr-tts/internal/config"
	"github.com/preetiguragol/asr-tts/internal/deepgram"
	"github.com/preetiguragol/asr-tts/internal/metrics"
	"github.com/preetiguragol/asr-tts/internal/session"
)

type stubBackend struct {
	events    chan deepgram.Event
	closeOnce sync.Once

	mu     sync.Mutex
	frames int
}

func newStubBackend() *stubBackend {
	b := &stubBackend{events: make(chan deepgram.Event, 16)}
	b.events <- deepgram.Event{Type: deepgram.EventOpen}
	return b
}

func (b *stubBackend) Events() <-chan deepgram.Event { return b.events }

func (b *stubBackend) SendAudio(frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames++
	return nil
}

func (b *stubBackend) Finish() error { return nil }

func (b *stubBackend) Close() error {
	b.closeOnce.Do(func() { close(b.events) })
	return nil
}

func newTestServer(t *testing.T) (*HTTPServer, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:                  8080,
			BindAddress:           "127.0.0.1",
			MaxConcurrentSessions: 10,
		},
		Audio: config.AudioConfig{SampleRate: 48000, Channels: 1, BitDepth: 16},
		Deepgram: config.DeepgramConfig{
			Model:    "nova-3",
			Language: "en-US",
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewMetrics(prometheus.NewRegistry())

	dial := func(ctx context.Context) (session.Backend, error) {
		return newStubBackend(), nil
	}
	mgr := session.NewManager(session.ManagerConfig{
		Audio:       cfg.Audio,
		MaxSessions: cfg.Server.MaxConcurrentSessions,
	}, dial, logger, m)

	h := NewHTTPServer(cfg, logger, mgr, m)
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return h, ts
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", health["status"])
	}
}

func TestSessionDetailNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/sessions/nope")
	if err != nil {
		t.Fatalf("GET /sessions/nope failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestConfigEndpointOmitsSecrets(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/config")
	if err != nil {
		t.Fatalf("GET /config failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read config response: %v", err)
	}
	if strings.Contains(strings.ToLower(string(body)), "api_key") {
		t.Error("config response must not contain the API key")
	}
}

func TestWebSocketSessionLifecycle(t *testing.T) {
	h, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// The first message is the ready notification
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ready map[string]string
	if err := conn.ReadJSON(&ready); err != nil {
		t.Fatalf("failed to read ready message: %v", err)
	}
	if ready["status"] != "ready" {
		t.Errorf("expected ready status, got %v", ready)
	}

	waitForCount(t, h, 1)

	resp, err := http.Get(ts.URL + "/sessions")
	if err != nil {
		t.Fatalf("GET /sessions failed: %v", err)
	}
	defer resp.Body.Close()

	var listing struct {
		TotalSessions int `json:"total_sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("failed to decode sessions response: %v", err)
	}
	if listing.TotalSessions != 1 {
		t.Errorf("expected 1 session, got %d", listing.TotalSessions)
	}

	conn.Close()
	waitForCount(t, h, 0)
}

func waitForCount(t *testing.T, h *HTTPServer, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.sessionMgr.GetActiveSessionCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session count never reached %d", want)
}
