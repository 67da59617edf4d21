// Package stt turns recorded audio segments into text.
package stt

import "context"

// Transcriber is the capability interface the pipeline depends on. A failed
// call is a turn-level error: the caller treats the result as empty text and
// never retries here.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
