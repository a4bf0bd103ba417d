// Package asr defines the Provider interface for batch automatic speech
// recognition backends: given a path to a normalized audio file, transcribe
// it in full and return the text plus word-level timestamps. This is
// deliberately a batch, not streaming, abstraction — the pipeline always
// has the complete audio file up front before the ASR stage runs.
package asr

import "context"

// Word is a single timestamped token in a transcription result.
type Word struct {
	Text    string
	StartMs int
	EndMs   int
}

// Result is the full output of a batch transcription.
type Result struct {
	// Text is the full transcript, used as the fallback segmentation input
	// when Words is empty.
	Text string

	// Words carries word-level timestamps when the backend supports them.
	// Segmentation prefers this over Text when non-empty.
	Words []Word

	// LanguageCode is the detected or configured source language (e.g. "en").
	LanguageCode string
}

// Provider is the abstraction over any batch ASR backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Transcribe uploads and transcribes the audio file at audioPath,
	// blocking until the backend returns a final result or ctx is
	// cancelled.
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}
