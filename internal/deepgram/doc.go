// Package deepgram implements the WebSocket client for the Deepgram live
// transcription API. It delivers open, transcript, metadata, and error
// events on a channel and accepts raw PCM audio frames for streaming.
package deepgram
