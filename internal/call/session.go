// Package call implements the conversation state machine that drives a call
// from handset pickup to hang-up.
package call

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/retrophonic/rotaryd/internal/reply"
)

// State of the call state machine.
type State int

const (
	// StateIdle means no call is active; the handset is on the cradle.
	StateIdle State = iota

	// StatePrompting plays the greeting.
	StatePrompting

	// StateListening captures the caller's utterance.
	StateListening

	// StateTranscribing converts the utterance to text.
	StateTranscribing

	// StateThinking generates the reply text.
	StateThinking

	// StateSpeaking plays the synthesized reply.
	StateSpeaking

	// StateTerminating winds the call down.
	StateTerminating
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StatePrompting:    "prompting",
	StateListening:    "listening",
	StateTranscribing: "transcribing",
	StateThinking:     "thinking",
	StateSpeaking:     "speaking",
	StateTerminating:  "terminating",
}

func (s State) String() string { return stateNames[s] }

// Termination reasons recorded on a finished call.
const (
	ReasonHungUp      = "hung_up"
	ReasonTurnCap     = "turn_cap"
	ReasonDurationCap = "duration_cap"
	ReasonDeviceError = "device_error"
	ReasonShutdown    = "shutdown"
)

// Session is the state of one call. All fields behind mu; the machine
// goroutine writes, the control server reads snapshots.
type Session struct {
	id        string
	startedAt time.Time

	mu         sync.Mutex
	state      State
	transcript []reply.Turn
	lastActive time.Time
	reason     string
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		id:         uuid.NewString(),
		startedAt:  now,
		state:      StatePrompting,
		lastActive: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) addTurn(role, text string) {
	s.mu.Lock()
	s.transcript = append(s.transcript, reply.Turn{Role: role, Text: text})
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// turnCount counts caller utterances, which is what the turn cap bounds.
func (s *Session) turnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.transcript {
		if t.Role == reply.RoleCaller {
			n++
		}
	}
	return n
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []reply.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reply.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) setReason(r string) {
	s.mu.Lock()
	if s.reason == "" {
		s.reason = r
	}
	s.mu.Unlock()
}

// Snapshot is a point-in-time view of a session for the control server.
type Snapshot struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	LastActive time.Time `json:"last_active"`
	Turns      int       `json:"turns"`
	Reason     string    `json:"reason,omitempty"`
}

// Snapshot returns the session's current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.transcript {
		if t.Role == reply.RoleCaller {
			n++
		}
	}
	return Snapshot{
		ID:         s.id,
		State:      s.state.String(),
		StartedAt:  s.startedAt,
		LastActive: s.lastActive,
		Turns:      n,
		Reason:     s.reason,
	}
}

// Record is the durable summary of a finished call.
type Record struct {
	ID        string       `json:"id"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Reason    string       `json:"reason"`
	Turns     []reply.Turn `json:"turns"`
}

// RecordSink receives the record of every finished call.
type RecordSink interface {
	Record(rec Record) error
}
