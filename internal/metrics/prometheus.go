package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the STT relay service
type Metrics struct {
	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionsClosed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Audio relay metrics
	FramesForwarded    prometheus.Counter
	FramesDropped      prometheus.Counter
	AudioBytesRecorded prometheus.Counter

	// Transcript metrics
	TranscriptsReceived  prometheus.Counter
	EmptySegmentsDropped prometheus.Counter
	RowsFlushed          prometheus.Counter

	// Backend metrics
	BackendErrors prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics on the given
// registerer (prometheus.DefaultRegisterer in the server binary)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stt_sessions_active",
			Help: "Current number of active relay sessions",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_sessions_started_total",
			Help: "Total number of relay sessions started",
		}),
		SessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_sessions_closed_total",
			Help: "Total number of relay sessions closed",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_session_duration_seconds",
			Help:    "Duration of relay sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),

		FramesForwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_audio_frames_forwarded_total",
			Help: "Total number of client audio frames forwarded to the backend",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_audio_frames_dropped_total",
			Help: "Total number of client audio frames dropped (empty or malformed)",
		}),
		AudioBytesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_audio_bytes_recorded_total",
			Help: "Total number of PCM bytes written to audio containers",
		}),

		TranscriptsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_transcripts_received_total",
			Help: "Total number of transcript results received from the backend",
		}),
		EmptySegmentsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_empty_segments_dropped_total",
			Help: "Total number of empty transcript segments dropped",
		}),
		RowsFlushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_transcript_rows_flushed_total",
			Help: "Total number of per-word rows appended to the transcript store",
		}),

		BackendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_backend_errors_total",
			Help: "Total number of backend error events observed",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSessionStarted increments the session counters
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionClosed decrements the active gauge and records the duration
func (m *Metrics) RecordSessionClosed(durationSeconds float64) {
	m.SessionsClosed.Inc()
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordFrameForwarded counts one audio frame relayed to the backend
func (m *Metrics) RecordFrameForwarded() {
	m.FramesForwarded.Inc()
}

// RecordFrameDropped counts one rejected client frame
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordAudioBytes counts PCM bytes persisted to an audio container
func (m *Metrics) RecordAudioBytes(n int) {
	m.AudioBytesRecorded.Add(float64(n))
}

// RecordTranscript counts one transcript result from the backend
func (m *Metrics) RecordTranscript() {
	m.TranscriptsReceived.Inc()
}

// RecordEmptySegmentDropped counts one dropped empty segment
func (m *Metrics) RecordEmptySegmentDropped() {
	m.EmptySegmentsDropped.Inc()
}

// RecordRowsFlushed counts rows appended to the transcript store
func (m *Metrics) RecordRowsFlushed(n int) {
	m.RowsFlushed.Add(float64(n))
}

// RecordBackendError counts one backend error event
func (m *Metrics) RecordBackendError() {
	m.BackendErrors.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
