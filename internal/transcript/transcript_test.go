package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAggregatorDropsEmptySegments(t *testing.T) {
	agg := NewAggregator()

	if agg.Append(Segment{Text: ""}) {
		t.Error("empty segment should be dropped")
	}
	if agg.Append(Segment{Text: "   \t"}) {
		t.Error("whitespace-only segment should be dropped")
	}
	if !agg.Append(Segment{Text: "hello there"}) {
		t.Error("non-empty segment should be kept")
	}

	if agg.Len() != 1 {
		t.Errorf("expected 1 accumulated segment, got %d", agg.Len())
	}
}

func TestAggregatorDrainPreservesOrderAndState(t *testing.T) {
	agg := NewAggregator()
	agg.Append(Segment{Text: "first"})
	agg.Append(Segment{Text: "second"})
	agg.Append(Segment{Text: "third"})

	drained := agg.Drain()
	if len(drained) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(drained))
	}
	for i, want := range []string{"first", "second", "third"} {
		if drained[i].Text != want {
			t.Errorf("segment %d: expected %q, got %q", i, want, drained[i].Text)
		}
	}

	// Drain is read-only; only Reset empties
	if agg.Len() != 3 {
		t.Errorf("Drain must not clear state, have %d segments", agg.Len())
	}

	agg.Reset()
	if agg.Len() != 0 {
		t.Errorf("expected empty aggregator after Reset, got %d", agg.Len())
	}
}

func TestRecordsFromSegments(t *testing.T) {
	segments := []Segment{
		{
			Text: "hello world",
			Words: []Word{
				{Speaker: 0, Start: 0.5, End: 0.9, Text: "hello"},
				{Speaker: 0, Start: 1.0, End: 1.4, Text: "world"},
			},
		},
		{
			Text: "yes",
			Words: []Word{
				{Speaker: 1, Start: 2.0, End: 2.2, Text: "yes"},
			},
		},
	}

	records := RecordsFromSegments(segments)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	if records[0].Word != "hello" || records[1].Word != "world" || records[2].Word != "yes" {
		t.Errorf("records out of order: %+v", records)
	}
	if records[2].Speaker != 1 {
		t.Errorf("expected speaker 1 on third record, got %d", records[2].Speaker)
	}
}

func TestLogWriterHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript", "transcripts.csv")
	lw := NewLogWriter(path)

	first := []Record{
		{Speaker: 0, Start: 0.5, End: 0.9, Word: "hello"},
		{Speaker: 1, Start: 1.26, End: 1.8, Word: "hi"},
	}
	if err := lw.Append(first); err != nil {
		t.Fatalf("first Append failed: %v", err)
	}

	// A second session flushing must not repeat the header
	second := []Record{
		{Speaker: 0, Start: 0.1, End: 0.4, Word: "again"},
	}
	if err := lw.Append(second); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read store: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines: %q", len(lines), lines)
	}

	if lines[0] != Header {
		t.Errorf("expected header %q, got %q", Header, lines[0])
	}
	if strings.Count(string(data), Header) != 1 {
		t.Error("header must appear exactly once per file lifetime")
	}

	if lines[1] != `Speaker 1,0.5,0.9,"hello"` {
		t.Errorf("unexpected first row: %q", lines[1])
	}
	if lines[2] != `Speaker 2,1.26,1.8,"hi"` {
		t.Errorf("unexpected second row: %q", lines[2])
	}
	if lines[3] != `Speaker 1,0.1,0.4,"again"` {
		t.Errorf("unexpected third row: %q", lines[3])
	}
}

func TestLogWriterDoublesEmbeddedQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.csv")
	lw := NewLogWriter(path)

	if err := lw.Append([]Record{{Speaker: 0, Start: 0, End: 0.5, Word: `say "cheese"`}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read store: %v", err)
	}

	want := `Speaker 1,0,0.5,"say ""cheese"""`
	if !strings.Contains(string(data), want) {
		t.Errorf("expected row %q in store, got:\n%s", want, data)
	}
}

func TestLogWriterEmptyFlushIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.csv")
	lw := NewLogWriter(path)

	if err := lw.Append(nil); err != nil {
		t.Fatalf("empty Append failed: %v", err)
	}

	// Header exists iff the store file exists
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty flush must not create the store file")
	}
}

func TestLogWriterNeverTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.csv")
	lw := NewLogWriter(path)

	if err := lw.Append([]Record{{Speaker: 0, Start: 0, End: 1, Word: "keep"}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	before, _ := os.ReadFile(path)

	if err := lw.Append([]Record{{Speaker: 0, Start: 1, End: 2, Word: "more"}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	after, _ := os.ReadFile(path)

	if !strings.HasPrefix(string(after), string(before)) {
		t.Error("existing store content was rewritten")
	}
}
