// Package say implements tts.Synthesizer with the host's speech command.
// It shells out to `say` on macOS and `espeak` elsewhere, so it works with
// no worker process running. Quality is what you'd expect.
package say

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/retrophonic/rotaryd/internal/audio"
)

// Synthesizer renders speech with a local command-line tool.
type Synthesizer struct {
	voice string
}

// New creates a terminal synthesizer. voice may be empty to use the
// system default.
func New(voice string) *Synthesizer {
	return &Synthesizer{voice: voice}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "terminal" }

// Synthesize writes speech to a temporary WAV file and decodes it.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	dir, err := os.MkdirTemp("", "rotaryd-say-*")
	if err != nil {
		return nil, fmt.Errorf("say: %w", err)
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "speech.wav")

	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		args := []string{"-o", out, "--file-format=WAVE", "--data-format=LEI16"}
		if s.voice != "" {
			args = append(args, "-v", s.voice)
		}
		args = append(args, text)
		cmd = exec.CommandContext(ctx, "say", args...)
	} else {
		args := []string{"-w", out}
		if s.voice != "" {
			args = append(args, "-v", s.voice)
		}
		args = append(args, text)
		cmd = exec.CommandContext(ctx, "espeak", args...)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("say: %w", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("say: %w", err)
	}
	clip, err := audio.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("say: %w", err)
	}
	return clip, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }
