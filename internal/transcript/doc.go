// Package transcript accumulates speaker-labeled transcript segments for a
// session and flushes them as per-word rows to the shared append-only CSV
// store.
package transcript
