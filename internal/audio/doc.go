// Package audio implements the WAV container writer used to persist one
// recording per session. It streams raw PCM frames to disk behind a reserved
// header and finalizes the header length fields on close.
package audio
