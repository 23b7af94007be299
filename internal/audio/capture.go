package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// FrameSource yields fixed-size PCM frames from the input device.
type FrameSource interface {
	// ReadFrame returns the next frame of signed 16-bit LE PCM. It honors
	// ctx cancellation while waiting for device data.
	ReadFrame(ctx context.Context) ([]byte, error)

	// Close releases the device.
	Close() error
}

// ExecSource captures microphone frames from an external recorder process
// writing raw PCM to stdout (arecord by default). A reader goroutine feeds a
// channel so ReadFrame can honor cancellation even while the pipe blocks.
type ExecSource struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	frames chan []byte
	errc   chan error
}

// NewExecSource starts the capture process. command may be empty to select
// arecord with the given format; frameBytes is the frame size in bytes.
func NewExecSource(command string, sampleRate, channels, frameBytes int) (*ExecSource, error) {
	if command == "" {
		command = fmt.Sprintf("arecord -q -t raw -f S16_LE -r %d -c %d",
			sampleRate, channels)
	}
	parts := strings.Fields(command)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &DeviceError{Op: "capture pipe", Err: err}
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &DeviceError{Op: "capture start", Err: err}
	}

	s := &ExecSource{
		cmd:    cmd,
		cancel: cancel,
		frames: make(chan []byte, 8),
		errc:   make(chan error, 1),
	}

	go func() {
		defer close(s.frames)
		for {
			frame := make([]byte, frameBytes)
			if _, err := io.ReadFull(stdout, frame); err != nil {
				s.errc <- err
				return
			}
			s.frames <- frame
		}
	}()

	slog.Debug("capture started",
		"command", parts[0], "frame_bytes", strconv.Itoa(frameBytes))
	return s, nil
}

// ReadFrame returns the next captured frame.
func (s *ExecSource) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-s.frames:
		if !ok {
			err := <-s.errc
			return nil, &DeviceError{Op: "capture read", Err: err}
		}
		return frame, nil
	}
}

// Close stops the capture process.
func (s *ExecSource) Close() error {
	s.cancel()
	_ = s.cmd.Wait()
	return nil
}
