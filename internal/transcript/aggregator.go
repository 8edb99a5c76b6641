package transcript

import (
	"strings"
	"sync"
)

// Word is the finest-grained transcript unit reported by the backend
type Word struct {
	Speaker int     `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"word"`
}

// Segment is one utterance reported by the backend, possibly spanning
// multiple words and speakers
type Segment struct {
	Text  string `json:"transcript"`
	Words []Word `json:"words"`
}

// Aggregator accumulates the transcript segments of one session in arrival
// order. It is a pure in-memory buffer with no file or network I/O.
type Aggregator struct {
	segments []Segment
	mu       sync.Mutex
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		segments: make([]Segment, 0),
	}
}

// Append stores a segment unless its text is empty after trimming.
// Silence and no-speech events arrive as empty segments and are dropped.
// It reports whether the segment was kept.
func (a *Aggregator) Append(segment Segment) bool {
	if strings.TrimSpace(segment.Text) == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.segments = append(a.segments, segment)
	return true
}

// Drain returns the accumulated segments in arrival order without clearing
// them. Finalization calls Reset once the segments are persisted.
func (a *Aggregator) Drain() []Segment {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Segment, len(a.segments))
	copy(out, a.segments)
	return out
}

// Reset empties the aggregator
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.segments = a.segments[:0]
}

// Len returns the number of accumulated segments
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.segments)
}
