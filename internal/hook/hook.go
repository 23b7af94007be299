// Package hook monitors the handset hook switch and turns raw switch
// readings into debounced PickedUp / HungUp events.
//
// The switch is a noisy mechanical contact. The monitor polls a Source and
// only commits a state change after it has held steady for the debounce
// window, so contact bounce never produces spurious events.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Type of hook transition.
type Type int

const (
	// PickedUp means the handset left the cradle.
	PickedUp Type = iota

	// HungUp means the handset returned to the cradle.
	HungUp
)

func (t Type) String() string {
	if t == PickedUp {
		return "picked_up"
	}
	return "hung_up"
}

// Event is one debounced hook transition.
type Event struct {
	Type Type
	At   time.Time
}

// Source reads the instantaneous hook switch state.
type Source interface {
	// OffHook reports whether the handset is currently off the cradle.
	OffHook() (bool, error)

	// Close releases the source.
	Close() error
}

// Monitor polls a Source and emits debounced events.
type Monitor struct {
	src      Source
	debounce time.Duration
	poll     time.Duration
	events   chan Event
	log      *slog.Logger
}

// NewMonitor creates a monitor over src. debounce is how long a new reading
// must hold before it counts as a real transition; poll is the sampling
// interval (zero picks a quarter of the debounce window).
func NewMonitor(src Source, debounce, poll time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if poll <= 0 {
		poll = debounce / 4
	}
	if poll < time.Millisecond {
		poll = time.Millisecond
	}
	return &Monitor{
		src:      src,
		debounce: debounce,
		poll:     poll,
		events:   make(chan Event, 4),
		log:      logger,
	}
}

// Events returns the channel of debounced transitions.
func (m *Monitor) Events() <-chan Event { return m.events }

// Run polls until ctx is cancelled. The state at startup is taken as the
// baseline; only subsequent changes produce events.
func (m *Monitor) Run(ctx context.Context) error {
	stable, err := m.src.OffHook()
	if err != nil {
		return fmt.Errorf("hook: initial read: %w", err)
	}
	m.log.Info("hook monitor started", "off_hook", stable, "debounce", m.debounce)

	var (
		candidate      = stable
		candidateSince time.Time
	)
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(m.events)
			return ctx.Err()
		case <-ticker.C:
		}

		raw, err := m.src.OffHook()
		if err != nil {
			m.log.Warn("hook read failed", "error", err)
			continue
		}
		if raw == stable {
			candidate = stable
			continue
		}
		if raw != candidate {
			candidate = raw
			candidateSince = time.Now()
			continue
		}
		if time.Since(candidateSince) < m.debounce {
			continue
		}

		stable = candidate
		ev := Event{At: time.Now()}
		if stable {
			ev.Type = PickedUp
		} else {
			ev.Type = HungUp
		}
		m.log.Debug("hook transition", "type", ev.Type.String())
		select {
		case m.events <- ev:
		default:
			m.log.Warn("hook event dropped, consumer lagging", "type", ev.Type.String())
		}
	}
}
