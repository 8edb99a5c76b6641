package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// headerSize is the fixed size of a PCM WAV header in bytes
const headerSize = 44

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

func newHeader(channels, sampleRate, bitDepth int, dataBytes uint32) WAVHeader {
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataBytes,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bitDepth / 8),
		BlockAlign:    uint16(channels * bitDepth / 8),
		BitsPerSample: uint16(bitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataBytes,
	}
}

// Writer streams raw PCM frames into a WAV container file. The header is
// reserved on creation and its length fields are rewritten from the actual
// byte count on Close. Close is idempotent and closing with zero frames
// written still produces a valid empty-payload container.
type Writer struct {
	file       *os.File
	path       string
	channels   int
	sampleRate int
	bitDepth   int
	blockAlign int
	dataBytes  uint32
	closed     bool
	mu         sync.Mutex
}

// NewWriter creates the destination file and reserves the WAV header
func NewWriter(path string, channels, sampleRate, bitDepth int) (*Writer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("channels must be at least 1, got %d", channels)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if bitDepth <= 0 || bitDepth%8 != 0 {
		return nil, fmt.Errorf("bit depth must be a positive multiple of 8, got %d", bitDepth)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file %s: %w", path, err)
	}

	w := &Writer{
		file:       file,
		path:       path,
		channels:   channels,
		sampleRate: sampleRate,
		bitDepth:   bitDepth,
		blockAlign: channels * bitDepth / 8,
	}

	// Placeholder header, finalized on Close
	if err := w.writeHeader(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}

	return w, nil
}

func (w *Writer) writeHeader() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to header: %w", err)
	}

	header := newHeader(w.channels, w.sampleRate, w.bitDepth, w.dataBytes)
	if err := binary.Write(w.file, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	return nil
}

// Write appends one frame of raw PCM samples. The frame length must be a
// whole number of sample-frames (channels * bitDepth/8 bytes each).
func (w *Writer) Write(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("audio writer for %s is closed", w.path)
	}

	if len(frame)%w.blockAlign != 0 {
		return fmt.Errorf("frame length %d is not a multiple of block align %d", len(frame), w.blockAlign)
	}

	n, err := w.file.Write(frame)
	w.dataBytes += uint32(n)
	if err != nil {
		return fmt.Errorf("failed to write audio frame: %w", err)
	}

	return nil
}

// BytesWritten returns the number of payload bytes written so far
func (w *Writer) BytesWritten() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dataBytes
}

// Path returns the destination file path
func (w *Writer) Path() string {
	return w.path
}

// Close finalizes the header length fields and releases the file handle.
// Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	headerErr := w.writeHeader()

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close audio file %s: %w", w.path, err)
	}

	return headerErr
}

// Info holds the format metadata of a WAV file
type Info struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
}

// ReadInfo reads and validates the header of a WAV file without loading the payload
func ReadInfo(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %w", path, err)
	}
	defer file.Close()

	var header WAVHeader
	if err := binary.Read(file, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header from %s: %w", path, err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file %s: missing RIFF header", path)
	}

	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file %s: missing WAVE format", path)
	}

	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("invalid WAV file %s: missing fmt chunk", path)
	}

	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("invalid WAV file %s: missing data chunk", path)
	}

	if header.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format %d in %s (only PCM is supported)", header.AudioFormat, path)
	}

	if header.SampleRate == 0 || header.BlockAlign == 0 {
		return nil, fmt.Errorf("invalid WAV file %s: zero sample rate or block align", path)
	}

	numFrames := header.Subchunk2Size / uint32(header.BlockAlign)

	return &Info{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      float64(numFrames) / float64(header.SampleRate),
		DataSize:      header.Subchunk2Size,
	}, nil
}
