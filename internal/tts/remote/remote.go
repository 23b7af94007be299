// Package remote implements tts.Synthesizer against the resident TTS worker
// process. The worker returns a complete WAV clip per request, base64-encoded
// in the response envelope.
package remote

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/retrophonic/rotaryd/internal/audio"
	"github.com/retrophonic/rotaryd/internal/worker"
)

// Synthesizer sends synthesis requests to the TTS worker.
type Synthesizer struct {
	w        *worker.Worker
	model    string
	language string
}

// New creates a synthesizer using the given worker, voice model and language.
func New(w *worker.Worker, model, language string) *Synthesizer {
	return &Synthesizer{w: w, model: model, language: language}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return s.model }

// Synthesize asks the worker to render the text as speech.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	payload := map[string]any{
		"text":     text,
		"model":    s.model,
		"language": s.language,
	}
	var result struct {
		Audio string `json:"audio"`
	}
	if err := s.w.Do(ctx, "tts", payload, &result); err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(result.Audio)
	if err != nil {
		return nil, fmt.Errorf("tts: decode audio: %w", err)
	}
	clip, err := audio.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	return clip, nil
}

// Close releases the worker channel.
func (s *Synthesizer) Close() error { return s.w.Close() }
