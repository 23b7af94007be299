// Package stt defines the interface for speech-to-text transcription.
package stt

import (
	"context"

	"github.com/retrophonic/rotaryd/internal/audio"
)

// Transcriber converts a captured utterance to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "vosk").
	Name() string

	// Transcribe converts the clip to text. An empty string with a nil error
	// means the audio contained no recognizable speech.
	Transcribe(ctx context.Context, clip *audio.Clip) (string, error)

	// Close releases any resources held by the transcriber.
	Close() error
}
