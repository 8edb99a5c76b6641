package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/preetiguragol/asr-tts/internal/audio"
	"github.com/preetiguragol/asr-tts/internal/config"
	"github.com/preetiguragol/asr-tts/internal/metrics"
	"github.com/preetiguragol/asr-tts/internal/transcript"
)

// DialFunc opens a new backend connection for a session
type DialFunc func(ctx context.Context) (Backend, error)

// ManagerConfig holds the manager settings derived from the service config
type ManagerConfig struct {
	Audio       config.AudioConfig
	Storage     config.StorageConfig
	OpenTimeout time.Duration
	MaxSessions int
}

// Manager owns the set of live relay sessions. It creates the per-session
// audio recorder, shares one transcript store across all sessions, and
// enforces the concurrent session limit.
type Manager struct {
	cfg  ManagerConfig
	dial DialFunc
	log  *transcript.LogWriter

	sessions map[string]*Session
	mu       sync.RWMutex

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewManager creates a session manager. The transcript store is created
// eagerly when persistence is enabled so all sessions share one writer.
func NewManager(cfg ManagerConfig, dial DialFunc, logger *slog.Logger, m *metrics.Metrics) *Manager {
	var log *transcript.LogWriter
	if cfg.Storage.Enabled {
		log = transcript.NewLogWriter(cfg.Storage.TranscriptPath)
	}

	return &Manager{
		cfg:      cfg,
		dial:     dial,
		log:      log,
		sessions: make(map[string]*Session),
		logger:   logger,
		metrics:  m,
	}
}

// StartSession creates a session for one client connection, dials the
// backend, and starts the relay goroutines. The caller keeps ownership of
// the client connection on error.
func (m *Manager) StartSession(ctx context.Context, client ClientConn) (*Session, error) {
	if m.cfg.MaxSessions > 0 && m.GetActiveSessionCount() >= m.cfg.MaxSessions {
		return nil, fmt.Errorf("session limit reached (%d)", m.cfg.MaxSessions)
	}

	id := ulid.Make().String()
	logger := m.logger.With(slog.String("session_id", id))

	recorder := m.newRecorder(logger)

	backend, err := m.dial(ctx)
	if err != nil {
		if recorder != nil {
			recorder.Close()
		}
		return nil, fmt.Errorf("failed to dial transcription backend: %w", err)
	}

	sess := New(id, client, backend, Options{
		Recorder:    recorder,
		Log:         m.log,
		BlockAlign:  m.cfg.Audio.BlockAlign(),
		OpenTimeout: m.cfg.OpenTimeout,
		OnClosed:    m.remove,
	}, logger, m.metrics)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.metrics.RecordSessionStarted()
	logger.Info("Session started",
		slog.Bool("recording", recorder != nil),
		slog.Int("active_sessions", m.GetActiveSessionCount()),
	)

	go sess.Run()
	return sess, nil
}

// newRecorder creates the audio container for a new session. Persistence
// failures degrade the session to relay-only instead of refusing it.
func (m *Manager) newRecorder(logger *slog.Logger) *audio.Writer {
	if !m.cfg.Storage.Enabled {
		return nil
	}

	if err := os.MkdirAll(m.cfg.Storage.AudioDir, 0o755); err != nil {
		logger.Error("Failed to create audio directory, session will not be recorded",
			slog.String("dir", m.cfg.Storage.AudioDir),
			slog.String("error", err.Error()),
		)
		return nil
	}

	path := filepath.Join(m.cfg.Storage.AudioDir, fmt.Sprintf("recording_%d.wav", time.Now().UnixMilli()))
	recorder, err := audio.NewWriter(path, m.cfg.Audio.Channels, m.cfg.Audio.SampleRate, m.cfg.Audio.BitDepth)
	if err != nil {
		logger.Error("Failed to create audio container, session will not be recorded",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return recorder
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()
}

// GetSession returns the session with the given ID
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// GetActiveSessionCount returns the number of live sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessions returns a snapshot of every live session for monitoring
func (m *Manager) GetAllSessions() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, sess.GetInfo())
	}
	return infos
}

// Stop closes every live session and waits for each to finish its Closing
// sequence, bounded by the context
func (m *Manager) Stop(ctx context.Context) {
	m.mu.RLock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		snapshot = append(snapshot, sess)
	}
	m.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	m.logger.Info("Stopping sessions", slog.Int("count", len(snapshot)))

	for _, sess := range snapshot {
		sess.Stop()
	}
	for _, sess := range snapshot {
		select {
		case <-sess.Done():
		case <-ctx.Done():
			m.logger.Warn("Timed out waiting for session to close", slog.String("session_id", sess.ID))
			return
		}
	}
}
