// Package events fans call lifecycle events out to in-process subscribers:
// the websocket stream, the MQTT publisher, and tests.
//
// Publishing never blocks. A subscriber that stops draining loses events
// rather than stalling the call state machine.
package events

import (
	"sync"
	"time"
)

// Event types emitted by the call state machine.
const (
	TypeCallStarted = "call_started"
	TypeStateChange = "state_change"
	TypeTurn        = "turn"
	TypeCallEnded   = "call_ended"
)

// Event is one call lifecycle notification.
type Event struct {
	Type    string    `json:"type"`
	Session string    `json:"session,omitempty"`
	State   string    `json:"state,omitempty"`
	Turn    int       `json:"turn,omitempty"`
	Caller  string    `json:"caller,omitempty"`
	Device  string    `json:"device,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// Bus is a fan-out of events to subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a subscriber with the given channel buffer. The
// returned cancel function removes the subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber whose buffer has room.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
