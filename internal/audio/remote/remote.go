// Package remote implements audio.Recorder against the resident VAD worker
// process. The worker owns the microphone and the speech endpointing model;
// one request captures one complete utterance.
package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/retrophonic/rotaryd/internal/audio"
	"github.com/retrophonic/rotaryd/internal/worker"
)

// Recorder delegates utterance capture to the VAD worker.
type Recorder struct {
	w *worker.Worker

	// headroom added on top of the utterance cap before the request is
	// presumed hung. The worker needs a moment to endpoint and encode.
	headroom time.Duration
}

// New creates a recorder backed by the given VAD worker.
func New(w *worker.Worker) *Recorder {
	return &Recorder{w: w, headroom: 10 * time.Second}
}

// Record asks the worker to capture one utterance. The request deadline is
// the utterance cap plus headroom, since a legitimate recording runs for up
// to MaxDuration before the worker even starts responding.
func (r *Recorder) Record(ctx context.Context, p audio.RecordParams) (*audio.Clip, error) {
	payload := map[string]any{
		"silence_duration_to_stop": p.SilenceDuration.Seconds(),
		"min_recording_duration":   p.MinDuration.Seconds(),
		"max_recording_duration":   p.MaxDuration.Seconds(),
	}
	var result struct {
		Audio string `json:"audio"`
	}
	err := r.w.DoWithin(ctx, p.MaxDuration+r.headroom, "record", payload, &result)
	if errors.Is(err, worker.ErrNoResult) {
		// No speech before the worker gave up. Not a failure.
		return &audio.Clip{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(result.Audio)
	if err != nil {
		return nil, fmt.Errorf("record: decode audio: %w", err)
	}
	clip, err := audio.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return clip, nil
}
