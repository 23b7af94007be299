package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ExecPlayer plays audio through an external player process. Cancelling the
// context kills the process, which stops output immediately; this is the same
// interruption model the device's playback has always used and it keeps the
// daemon free of audio-backend bindings.
type ExecPlayer struct {
	command string
	args    []string
}

// NewExecPlayer creates a player using the given command line. An empty
// command selects a platform default: ffplay on Linux, afplay on macOS.
// The file path is appended as the final argument.
func NewExecPlayer(command string) *ExecPlayer {
	if command == "" {
		if runtime.GOOS == "darwin" {
			command = "afplay"
		} else {
			command = "ffplay -nodisp -loglevel quiet -autoexit"
		}
	}
	parts := strings.Fields(command)
	return &ExecPlayer{command: parts[0], args: parts[1:]}
}

// PlayFile plays the file to completion or interruption.
func (p *ExecPlayer) PlayFile(ctx context.Context, path string) error {
	if ctx.Err() != nil {
		return ErrInterrupted
	}

	args := append(append([]string(nil), p.args...), path)
	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	slog.Debug("playback start", "command", p.command, "path", path)

	if err := cmd.Run(); err != nil {
		// A kill triggered by cancellation is an interruption, not a failure.
		if ctx.Err() != nil {
			slog.Debug("playback interrupted", "path", path)
			return ErrInterrupted
		}
		return &DeviceError{Op: "play " + path, Err: err}
	}
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	return nil
}

// PlayClip writes the clip to a temporary WAV file and plays it.
func (p *ExecPlayer) PlayClip(ctx context.Context, clip *Clip) error {
	if clip.Empty() {
		return nil
	}

	f, err := os.CreateTemp("", "rotaryd-clip-*.wav")
	if err != nil {
		return &DeviceError{Op: "spool clip", Err: err}
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(clip.WAV()); err != nil {
		f.Close()
		return &DeviceError{Op: "spool clip", Err: err}
	}
	if err := f.Close(); err != nil {
		return &DeviceError{Op: "spool clip", Err: fmt.Errorf("close: %w", err)}
	}

	return p.PlayFile(ctx, f.Name())
}
