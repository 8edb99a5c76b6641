// Package session implements the relay session between a client WebSocket
// connection and a live transcription backend, and the manager that owns
// the set of live sessions. A session forwards client audio frames to the
// backend, records them to a WAV container, relays transcript events back
// to the client, and flushes the aggregated transcript on close.
package session
