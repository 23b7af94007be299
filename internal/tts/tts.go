// Package tts defines the interface for text-to-speech synthesis.
package tts

import (
	"context"
	"regexp"

	"github.com/retrophonic/rotaryd/internal/audio"
)

// Synthesizer converts reply text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "google-tts", "terminal").
	Name() string

	// Synthesize generates a playable clip from the given text.
	Synthesize(ctx context.Context, text string) (*audio.Clip, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Characters the voices read aloud or stumble over: markdown, brackets,
// escapes.
var unspeakable = regexp.MustCompile("[*_\\[\\]{}()~^=|\\\\/<>#@`]")

// CleanText strips characters that generators emit but voices should not
// attempt to pronounce.
func CleanText(text string) string {
	return unspeakable.ReplaceAllString(text, "")
}
