package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/preetiguragol/asr-tts/internal/audio"
	"github.com/preetiguragol/asr-tts/internal/transcript"
)

// NotAvailable is the placeholder for report fields that cannot be computed
const NotAvailable = "N/A"

// Report summarizes the recorded audio and transcript data
type Report struct {
	TotalTranscriptions       int     `json:"total_transcriptions"`
	TotalAudioFiles           int     `json:"total_audio_files"`
	TotalAudioDurationSeconds float64 `json:"total_audio_duration_seconds"`
	FirstAudioTimestamp       string  `json:"first_audio_timestamp"`
	FirstTranscriptTimestamp  string  `json:"first_transcript_timestamp"`
	TimeToFirstResponse       string  `json:"time_to_first_response"`
	GeneratedAt               string  `json:"generated_at"`
}

// Generate builds a report from the audio directory and the transcript
// store. The first transcript timestamp is the earliest recording's start
// plus the first row's start offset, and the time to first response is that
// offset itself. Missing inputs produce zero counts and N/A fields rather
// than an error; only unreadable inputs that exist fail the run.
func Generate(audioDir, transcriptPath string) (*Report, error) {
	r := &Report{
		FirstAudioTimestamp:      NotAvailable,
		FirstTranscriptTimestamp: NotAvailable,
		TimeToFirstResponse:      NotAvailable,
		GeneratedAt:              time.Now().UTC().Format(time.RFC3339),
	}

	firstAudio, err := r.scanAudio(audioDir)
	if err != nil {
		return nil, err
	}
	firstStart, haveStart, err := r.scanTranscript(transcriptPath)
	if err != nil {
		return nil, err
	}

	if !firstAudio.IsZero() {
		r.FirstAudioTimestamp = firstAudio.UTC().Format(time.RFC3339)
	}
	if !firstAudio.IsZero() && haveStart {
		latency := time.Duration(firstStart * float64(time.Second))
		r.FirstTranscriptTimestamp = firstAudio.Add(latency).UTC().Format(time.RFC3339)
		// The store has always carried latencies as bare seconds ("75.5s",
		// never "1m15.5s")
		r.TimeToFirstResponse = strconv.FormatFloat(firstStart, 'f', -1, 64) + "s"
	}

	return r, nil
}

// scanAudio counts the recordings and returns the earliest one's timestamp
func (r *Report) scanAudio(audioDir string) (time.Time, error) {
	var earliest time.Time

	entries, err := os.ReadDir(audioDir)
	if err != nil {
		if os.IsNotExist(err) {
			return earliest, nil
		}
		return earliest, fmt.Errorf("failed to read audio directory %s: %w", audioDir, err)
	}

	for _, entry := range entries {
		// Every directory entry counts, matching what consumers of the old
		// reports expect
		r.TotalAudioFiles++
		if entry.IsDir() {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			return earliest, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}

		if earliest.IsZero() || fi.ModTime().Before(earliest) {
			earliest = fi.ModTime()
		}

		// Tolerate half-written containers from crashed sessions
		if info, err := audio.ReadInfo(filepath.Join(audioDir, entry.Name())); err == nil {
			r.TotalAudioDurationSeconds += info.Duration
		}
	}

	return earliest, nil
}

// scanTranscript counts the per-word rows and returns the first row's start
// offset in seconds
func (r *Report) scanTranscript(transcriptPath string) (float64, bool, error) {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read transcript store %s: %w", transcriptPath, err)
	}

	var firstStart float64
	var haveStart bool

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i, line := range lines {
		if line == "" || (i == 0 && line == transcript.Header) {
			continue
		}
		r.TotalTranscriptions++

		if !haveStart {
			if start, ok := rowStart(line); ok {
				firstStart = start
				haveStart = true
			}
		}
	}

	return firstStart, haveStart, nil
}

// rowStart extracts the start offset from one transcript row. Rows are
// "Speaker N,start,end,word"; the word field never contains a comma.
func rowStart(line string) (float64, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return 0, false
	}
	start, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, false
	}
	return start, true
}

// Write renders the report as indented JSON at the given path, overwriting
// any previous report
func Write(r *Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
