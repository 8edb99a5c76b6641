// Package report builds the offline quality report over the recorded audio
// files and the transcript store.
package report
