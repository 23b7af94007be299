package hook

import (
	"bufio"
	"io"
	"sync/atomic"
)

// StdinSource simulates the hook switch from a terminal: each line read
// toggles the handset state. Useful on machines without the GPIO wiring.
type StdinSource struct {
	offHook atomic.Bool
	done    chan struct{}
}

// NewStdinSource starts reading lines from r. The handset starts on the
// cradle.
func NewStdinSource(r io.Reader) *StdinSource {
	s := &StdinSource{done: make(chan struct{})}
	go func() {
		defer close(s.done)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			s.offHook.Store(!s.offHook.Load())
		}
	}()
	return s
}

// OffHook reports the simulated handset state.
func (s *StdinSource) OffHook() (bool, error) { return s.offHook.Load(), nil }

// Close is a no-op; the reader goroutine exits when its input closes.
func (s *StdinSource) Close() error { return nil }
