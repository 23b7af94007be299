// Package audio owns the local audio device: cancellable playback of clips
// and prompt files, and cancellable utterance capture with silence-based
// end-of-utterance detection.
//
// Both long-running operations accept a context and stop within one frame
// period of cancellation. The hang-up path cancels from a different goroutine
// than the one blocked in the operation, so implementations must never block
// uninterruptibly on the device.
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrInterrupted is returned by Play when playback was cut short by context
// cancellation rather than finishing naturally.
var ErrInterrupted = errors.New("audio: playback interrupted")

// DeviceError wraps a failure of the underlying audio device or its driver
// process. Device errors abort the current call but never the daemon.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string { return "audio: " + e.Op + ": " + e.Err.Error() }
func (e *DeviceError) Unwrap() error { return e.Err }

// Player streams audio to the output device.
//
// Only one playback runs at a time; the call state machine's sequential
// design enforces this, not a lock in the implementation.
type Player interface {
	// PlayFile plays an audio file to completion. Returns ErrInterrupted if
	// ctx is cancelled before the clip finishes.
	PlayFile(ctx context.Context, path string) error

	// PlayClip plays an in-memory clip to completion, same contract as
	// PlayFile.
	PlayClip(ctx context.Context, clip *Clip) error
}

// RecordParams bounds a single utterance capture.
type RecordParams struct {
	// SilenceDuration of trailing silence that ends the utterance.
	SilenceDuration time.Duration

	// MinDuration below which trailing silence is ignored.
	MinDuration time.Duration

	// MaxDuration hard-caps the recording.
	MaxDuration time.Duration

	// SilenceThreshold is the RMS level (0..1) below which a frame counts
	// as silence.
	SilenceThreshold float64
}

// Recorder captures one utterance from the input device.
type Recorder interface {
	// Record captures frames until the silence-based stop condition, the
	// duration cap, or ctx cancellation. On cancellation it returns whatever
	// was captured so far (possibly empty) together with ctx.Err(). A nil
	// error with an empty clip means no speech was detected.
	Record(ctx context.Context, p RecordParams) (*Clip, error)
}
