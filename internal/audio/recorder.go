package audio

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

// StreamRecorder implements Recorder over a FrameSource using RMS-energy
// voice activity detection: recording starts at the first voiced frame,
// leading silence is discarded, and the utterance ends after
// SilenceDuration of trailing silence (once MinDuration of audio exists)
// or at the MaxDuration cap.
//
// Durations are tracked by frame count, not wall clock, so the stop
// conditions are exact with respect to the audio actually captured.
type StreamRecorder struct {
	src        FrameSource
	sampleRate int
	channels   int
	frameDur   time.Duration
}

// NewStreamRecorder creates a recorder reading frames of frameDur from src.
func NewStreamRecorder(src FrameSource, sampleRate, channels int, frameDur time.Duration) *StreamRecorder {
	if frameDur <= 0 {
		frameDur = 20 * time.Millisecond
	}
	return &StreamRecorder{
		src:        src,
		sampleRate: sampleRate,
		channels:   channels,
		frameDur:   frameDur,
	}
}

// Record captures one utterance.
func (r *StreamRecorder) Record(ctx context.Context, p RecordParams) (*Clip, error) {
	var (
		recorded      []byte
		speechStarted bool
		silence       time.Duration
		waited        time.Duration
		captured      time.Duration
	)

	clip := func() *Clip {
		return &Clip{PCM: recorded, SampleRate: r.sampleRate, Channels: r.channels}
	}

	for {
		frame, err := r.src.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Hang-up race: hand back whatever we have.
				return clip(), err
			}
			return clip(), err
		}

		voiced := rms(frame) >= p.SilenceThreshold

		if !speechStarted {
			if !voiced {
				waited += r.frameDur
				// Give up if nobody speaks for the whole utterance budget.
				if p.MaxDuration > 0 && waited >= p.MaxDuration {
					slog.Debug("no speech detected", "waited", waited)
					return &Clip{SampleRate: r.sampleRate, Channels: r.channels}, nil
				}
				continue
			}
			speechStarted = true
		}

		recorded = append(recorded, frame...)
		captured += r.frameDur

		if voiced {
			silence = 0
		} else {
			silence += r.frameDur
		}

		if p.MaxDuration > 0 && captured >= p.MaxDuration {
			slog.Debug("utterance capped", "duration", captured)
			return clip(), nil
		}
		if silence >= p.SilenceDuration && captured >= p.MinDuration {
			slog.Debug("utterance ended on silence",
				"duration", captured, "trailing_silence", silence)
			return clip(), nil
		}
	}
}

// rms computes the root-mean-square level of a signed 16-bit LE frame,
// normalized to [0,1].
func rms(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sample := int16(frame[i*2]) | int16(frame[i*2+1])<<8
		v := float64(sample) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
