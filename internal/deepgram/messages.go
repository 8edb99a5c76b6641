package deepgram

import (
	"encoding/json"
	"fmt"

	"github.com/preetiguragol/asr-tts/internal/transcript"
)

// Wire message types emitted by the live transcription endpoint
const (
	msgTypeResults       = "Results"
	msgTypeMetadata      = "Metadata"
	msgTypeError         = "Error"
	msgTypeUtteranceEnd  = "UtteranceEnd"
	msgTypeSpeechStarted = "SpeechStarted"
)

// EventType identifies a backend event delivered to the session
type EventType string

const (
	// EventOpen signals that the live connection is established and accepting audio
	EventOpen EventType = "open"
	// EventTranscript carries one transcript result
	EventTranscript EventType = "transcript"
	// EventMetadata carries a metadata payload, observed only
	EventMetadata EventType = "metadata"
	// EventError carries a backend error that does not end the session by itself
	EventError EventType = "error"
)

// Event is one backend event. The events channel closing is the close signal.
type Event struct {
	Type     EventType
	Result   *Result
	Metadata json.RawMessage
	Err      error
}

// Result is a parsed transcript message
type Result struct {
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`
	Channel     Channel `json:"channel"`
}

// Channel holds the transcription alternatives for one audio channel
type Channel struct {
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative is one transcription hypothesis with word-level detail
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Word carries per-word timing and the diarized speaker label
type Word struct {
	Word           string  `json:"word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        int     `json:"speaker"`
	PunctuatedWord string  `json:"punctuated_word"`
}

// Transcript returns the best alternative's transcript text, or "" when the
// result carries none
func (r *Result) Transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return r.Channel.Alternatives[0].Transcript
}

// Segment converts the best alternative into the session transcript form
func (r *Result) Segment() transcript.Segment {
	segment := transcript.Segment{Text: r.Transcript()}
	if len(r.Channel.Alternatives) == 0 {
		return segment
	}

	words := r.Channel.Alternatives[0].Words
	segment.Words = make([]transcript.Word, 0, len(words))
	for _, w := range words {
		segment.Words = append(segment.Words, transcript.Word{
			Speaker: w.Speaker,
			Start:   w.Start,
			End:     w.End,
			Text:    w.Word,
		})
	}
	return segment
}

type errorMessage struct {
	Type        string `json:"type"`
	ErrCode     string `json:"err_code"`
	ErrMsg      string `json:"err_msg"`
	Description string `json:"description"`
}

// decodeMessage parses one wire message into an event. Messages that carry
// nothing the session cares about decode to nil without error.
func decodeMessage(data []byte) (*Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed backend message: %w", err)
	}

	switch envelope.Type {
	case msgTypeResults:
		var result Result
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("malformed transcript message: %w", err)
		}
		return &Event{Type: EventTranscript, Result: &result}, nil

	case msgTypeMetadata:
		return &Event{Type: EventMetadata, Metadata: json.RawMessage(data)}, nil

	case msgTypeError:
		var msg errorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed error message: %w", err)
		}
		reason := msg.ErrMsg
		if reason == "" {
			reason = msg.Description
		}
		return &Event{Type: EventError, Err: fmt.Errorf("backend error %s: %s", msg.ErrCode, reason)}, nil

	case msgTypeUtteranceEnd, msgTypeSpeechStarted:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown backend message type %q", envelope.Type)
	}
}
