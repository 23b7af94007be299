// Package remote implements stt.Transcriber against the resident ASR worker
// process. Audio travels base64-encoded in a WAV container; the worker keeps
// the recognition model loaded across calls.
package remote

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/retrophonic/rotaryd/internal/audio"
	"github.com/retrophonic/rotaryd/internal/worker"
)

// Transcriber sends transcription requests to the ASR worker.
type Transcriber struct {
	w     *worker.Worker
	model string
}

// New creates a transcriber using the given worker and model name.
func New(w *worker.Worker, model string) *Transcriber {
	if model == "" {
		model = "vosk"
	}
	return &Transcriber{w: w, model: model}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return t.model }

// Transcribe sends the clip to the ASR worker.
func (t *Transcriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if clip.Empty() {
		return "", nil
	}

	payload := map[string]any{
		"audio": base64.StdEncoding.EncodeToString(clip.WAV()),
		"model": t.model,
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := t.w.Do(ctx, "asr", payload, &result); err != nil {
		return "", fmt.Errorf("asr: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// Close releases the worker channel.
func (t *Transcriber) Close() error { return t.w.Close() }
