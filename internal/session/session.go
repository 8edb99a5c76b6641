package session

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/preetiguragol/asr-tts/internal/audio"
	"github.com/preetiguragol/asr-tts/internal/deepgram"
	"github.com/preetiguragol/asr-tts/internal/metrics"
	"github.com/preetiguragol/asr-tts/internal/transcript"
)

// State is the lifecycle state of a relay session
type State int32

const (
	StateIdle State = iota
	StateOpening
	StateStreaming
	StateClosing
	StateClosed
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ClientConn is the duplex client connection surface the session needs.
// Satisfied by *websocket.Conn.
type ClientConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Backend is the live transcription connection surface the session needs.
// Satisfied by *deepgram.Client. The events channel closing is the backend
// close signal.
type Backend interface {
	Events() <-chan deepgram.Event
	SendAudio(frame []byte) error
	Finish() error
	Close() error
}

// statusMessage is sent to the client once the backend is ready for audio
type statusMessage struct {
	Status string `json:"status"`
}

// transcriptMessage is sent to the client per non-empty transcript segment
type transcriptMessage struct {
	Transcript string            `json:"transcript"`
	Channel    *deepgram.Channel `json:"channel"`
}

// Options holds the per-session collaborators and limits
type Options struct {
	// Recorder persists the session audio; nil disables audio persistence
	Recorder *audio.Writer
	// Log is the shared transcript store; nil disables transcript persistence
	Log *transcript.LogWriter
	// BlockAlign is the size of one PCM sample-frame in bytes
	BlockAlign int
	// OpenTimeout bounds the wait for the backend open event; 0 waits forever
	OpenTimeout time.Duration
	// OnClosed is invoked once after the session reaches its terminal state
	OnClosed func(*Session)
}

// Session relays audio from one client connection to one backend connection
// and transcript events back, persisting both sides along the way. Its
// lifecycle is Idle -> Opening -> Streaming -> Closing -> Closed, with
// Closing entered exactly once no matter which side disconnects first.
type Session struct {
	ID        string
	StartTime time.Time

	client     ClientConn
	backend    Backend
	recorder   *audio.Writer
	aggregator *transcript.Aggregator
	log        *transcript.LogWriter

	blockAlign  int
	openTimeout time.Duration
	onClosed    func(*Session)

	logger  *slog.Logger
	metrics *metrics.Metrics

	state         atomic.Int32
	closeOnce     sync.Once
	clientWriteMu sync.Mutex
	done          chan struct{}

	framesForwarded atomic.Uint64
	framesDropped   atomic.Uint64
}

// New creates a session in the Idle state; Run drives it to completion
func New(id string, client ClientConn, backend Backend, opts Options, logger *slog.Logger, m *metrics.Metrics) *Session {
	blockAlign := opts.BlockAlign
	if blockAlign <= 0 {
		blockAlign = 2 // mono 16-bit
	}

	s := &Session{
		ID:          id,
		StartTime:   time.Now(),
		client:      client,
		backend:     backend,
		recorder:    opts.Recorder,
		aggregator:  transcript.NewAggregator(),
		log:         opts.Log,
		blockAlign:  blockAlign,
		openTimeout: opts.OpenTimeout,
		onClosed:    opts.OnClosed,
		logger:      logger,
		metrics:     m,
		done:        make(chan struct{}),
	}
	s.state.Store(int32(StateIdle))
	return s
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Done is closed once the session reaches its terminal state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run drives the session until both connections are gone. It blocks until
// the session is Closed.
func (s *Session) Run() {
	s.setState(StateOpening)

	var openTimer *time.Timer
	if s.openTimeout > 0 {
		openTimer = time.AfterFunc(s.openTimeout, func() {
			if s.State() == StateOpening {
				s.logger.Warn("Backend never opened, closing session",
					slog.Duration("open_timeout", s.openTimeout),
				)
				s.shutdown("backend open timeout")
			}
		})
		defer openTimer.Stop()
	}

	backendDone := make(chan struct{})
	go func() {
		defer close(backendDone)
		s.backendLoop(openTimer)
	}()

	s.clientLoop()
	s.shutdown("client disconnected")

	<-backendDone
}

// clientLoop reads client messages until the connection closes
func (s *Session) clientLoop() {
	for {
		messageType, data, err := s.client.ReadMessage()
		if err != nil {
			s.logger.Debug("Client read ended", slog.String("error", err.Error()))
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleFrame(data)
		case websocket.TextMessage:
			// Keep-alive chatter from the browser, nothing to do
			s.logger.Debug("Ignoring client text message", slog.Int("bytes", len(data)))
		}
	}
}

// handleFrame validates one client audio frame and delivers it to both the
// backend and the recorder. Both deliveries are attempted even if one fails.
func (s *Session) handleFrame(frame []byte) {
	if len(frame) == 0 {
		s.framesDropped.Add(1)
		s.metrics.RecordFrameDropped()
		return
	}

	if len(frame)%s.blockAlign != 0 {
		s.framesDropped.Add(1)
		s.metrics.RecordFrameDropped()
		s.logger.Debug("Dropping malformed audio frame",
			slog.Int("bytes", len(frame)),
			slog.Int("block_align", s.blockAlign),
		)
		return
	}

	if s.State() != StateStreaming {
		s.framesDropped.Add(1)
		s.metrics.RecordFrameDropped()
		s.logger.Debug("Dropping audio frame outside streaming state",
			slog.String("state", s.State().String()),
		)
		return
	}

	if err := s.backend.SendAudio(frame); err != nil {
		s.logger.Warn("Failed to forward audio frame to backend", slog.String("error", err.Error()))
	} else {
		s.framesForwarded.Add(1)
		s.metrics.RecordFrameForwarded()
	}

	if s.recorder != nil {
		if err := s.recorder.Write(frame); err != nil {
			s.logger.Warn("Failed to write audio frame to container", slog.String("error", err.Error()))
		} else {
			s.metrics.RecordAudioBytes(len(frame))
		}
	}
}

// backendLoop consumes backend events until the backend connection closes
func (s *Session) backendLoop(openTimer *time.Timer) {
	for event := range s.backend.Events() {
		switch event.Type {
		case deepgram.EventOpen:
			if openTimer != nil {
				openTimer.Stop()
			}
			s.setState(StateStreaming)
			s.sendToClient(statusMessage{Status: "ready"})
			s.logger.Info("Backend connection opened, session streaming")

		case deepgram.EventTranscript:
			s.metrics.RecordTranscript()
			s.handleTranscript(event.Result)

		case deepgram.EventMetadata:
			s.logger.Debug("Backend metadata received", slog.Int("bytes", len(event.Metadata)))

		case deepgram.EventError:
			s.metrics.RecordBackendError()
			s.logger.Error("Backend error event", slog.String("error", event.Err.Error()))
		}
	}

	s.shutdown("backend closed")
}

// handleTranscript aggregates one transcript result and forwards it to the
// client. Segments with empty text are silence markers and are dropped.
func (s *Session) handleTranscript(result *deepgram.Result) {
	segment := result.Segment()
	if strings.TrimSpace(segment.Text) == "" {
		s.metrics.RecordEmptySegmentDropped()
		return
	}

	s.aggregator.Append(segment)
	s.sendToClient(transcriptMessage{
		Transcript: segment.Text,
		Channel:    &result.Channel,
	})

	s.logger.Debug("Transcript segment relayed",
		slog.String("text", segment.Text),
		slog.Int("words", len(segment.Words)),
	)
}

func (s *Session) sendToClient(v interface{}) {
	s.clientWriteMu.Lock()
	defer s.clientWriteMu.Unlock()

	if err := s.client.WriteJSON(v); err != nil {
		s.logger.Debug("Failed to send message to client", slog.String("error", err.Error()))
	}
}

// Stop forces the session through the Closing sequence. Used on server
// shutdown; normal sessions close themselves when either side disconnects.
func (s *Session) Stop() {
	s.shutdown("server shutdown")
}

// shutdown runs the Closing sequence exactly once: finish the backend,
// flush the transcript store, finalize the audio container, close the
// client. Each step runs regardless of the others failing.
func (s *Session) shutdown(reason string) {
	s.closeOnce.Do(func() {
		s.setState(StateClosing)
		s.logger.Info("Closing session", slog.String("reason", reason))

		if err := s.backend.Finish(); err != nil {
			s.logger.Debug("Failed to finish backend stream", slog.String("error", err.Error()))
		}
		if err := s.backend.Close(); err != nil {
			s.logger.Debug("Failed to close backend connection", slog.String("error", err.Error()))
		}

		if s.log != nil {
			records := transcript.RecordsFromSegments(s.aggregator.Drain())
			if err := s.log.Append(records); err != nil {
				s.logger.Error("Failed to flush transcript store",
					slog.String("path", s.log.Path()),
					slog.String("error", err.Error()),
				)
			} else {
				s.aggregator.Reset()
				if len(records) > 0 {
					s.metrics.RecordRowsFlushed(len(records))
					s.logger.Info("Transcript flushed",
						slog.String("path", s.log.Path()),
						slog.Int("rows", len(records)),
					)
				}
			}
		}

		if s.recorder != nil {
			bytesWritten := s.recorder.BytesWritten()
			if err := s.recorder.Close(); err != nil {
				s.logger.Error("Failed to finalize audio container",
					slog.String("path", s.recorder.Path()),
					slog.String("error", err.Error()),
				)
			} else {
				s.logger.Info("Audio container finalized",
					slog.String("path", s.recorder.Path()),
					slog.Uint64("bytes", uint64(bytesWritten)),
				)
			}
		}

		s.clientWriteMu.Lock()
		s.client.Close()
		s.clientWriteMu.Unlock()

		s.setState(StateClosed)
		s.metrics.RecordSessionClosed(time.Since(s.StartTime).Seconds())

		s.logger.Info("Session closed",
			slog.Duration("duration", time.Since(s.StartTime)),
			slog.Uint64("frames_forwarded", s.framesForwarded.Load()),
			slog.Uint64("frames_dropped", s.framesDropped.Load()),
		)

		if s.onClosed != nil {
			s.onClosed(s)
		}
		close(s.done)
	})
}

// Info is a session snapshot for the monitoring API
type Info struct {
	ID              string        `json:"id"`
	State           string        `json:"state"`
	StartTime       time.Time     `json:"start_time"`
	Duration        time.Duration `json:"duration"`
	FramesForwarded uint64        `json:"frames_forwarded"`
	FramesDropped   uint64        `json:"frames_dropped"`
	Segments        int           `json:"segments"`
	AudioPath       string        `json:"audio_path,omitempty"`
}

// GetInfo returns a snapshot of the session for monitoring
func (s *Session) GetInfo() Info {
	info := Info{
		ID:              s.ID,
		State:           s.State().String(),
		StartTime:       s.StartTime,
		Duration:        time.Since(s.StartTime),
		FramesForwarded: s.framesForwarded.Load(),
		FramesDropped:   s.framesDropped.Load(),
		Segments:        s.aggregator.Len(),
	}
	if s.recorder != nil {
		info.AudioPath = s.recorder.Path()
	}
	return info
}
