package transcript

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Header is the first line of the transcript store, written exactly once
// per file lifetime
const Header = "Speaker,Start,End,Word"

// Record is one persisted row: a single spoken word with its speaker label
// and timing. Speaker is the backend's zero-based label; the persisted form
// is one-based.
type Record struct {
	Speaker int
	Start   float64
	End     float64
	Word    string
}

// RecordsFromSegments flattens segments into per-word records, preserving
// arrival order
func RecordsFromSegments(segments []Segment) []Record {
	var records []Record
	for _, segment := range segments {
		for _, word := range segment.Words {
			records = append(records, Record{
				Speaker: word.Speaker,
				Start:   word.Start,
				End:     word.End,
				Word:    word.Text,
			})
		}
	}
	return records
}

// LogWriter appends per-word records to the shared transcript store. The
// store is created with its header on first use and is never rewritten or
// truncated. Each Append is a single write, so concurrent session flushes
// never interleave partial lines.
type LogWriter struct {
	path string
	mu   sync.Mutex
}

// NewLogWriter creates a log writer for the given store path
func NewLogWriter(path string) *LogWriter {
	return &LogWriter{path: path}
}

// Path returns the store file path
func (l *LogWriter) Path() string {
	return l.path
}

// Append writes the records to the store in order, creating the store with
// its header row if absent. A nil or empty record list is a no-op.
func (l *LogWriter) Append(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create transcript directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open transcript store %s: %w", l.path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat transcript store %s: %w", l.path, err)
	}

	var buf bytes.Buffer
	if stat.Size() == 0 {
		buf.WriteString(Header)
		buf.WriteByte('\n')
	}
	for _, record := range records {
		buf.WriteString(formatRecord(record))
		buf.WriteByte('\n')
	}

	if _, err := file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append to transcript store %s: %w", l.path, err)
	}

	return nil
}

// formatRecord renders one row as `Speaker {n},{start},{end},"{word}"`.
// Speaker labels are one-based in the persisted form and embedded double
// quotes in the word are doubled so strict CSV consumers stay happy.
func formatRecord(r Record) string {
	word := strings.ReplaceAll(r.Word, `"`, `""`)
	return fmt.Sprintf(`Speaker %d,%s,%s,"%s"`, r.Speaker+1, formatSeconds(r.Start), formatSeconds(r.End), word)
}

// formatSeconds renders a timestamp the way the store has always carried
// them: shortest decimal form, no exponent
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
