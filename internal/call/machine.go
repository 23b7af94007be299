package call

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/retrophonic/rotaryd/internal/audio"
	"github.com/retrophonic/rotaryd/internal/events"
	"github.com/retrophonic/rotaryd/internal/hook"
	"github.com/retrophonic/rotaryd/internal/prompt"
	"github.com/retrophonic/rotaryd/internal/reply"
	"github.com/retrophonic/rotaryd/internal/stt"
	"github.com/retrophonic/rotaryd/internal/tts"
)

// fillerGap separates repeats of a looping filler clip.
const fillerGap = 300 * time.Millisecond

// DefaultIgnoredPhrases are stock hallucinations recognizers produce on
// near-silent clips.
var DefaultIgnoredPhrases = []string{
	"you",
	"huh",
	"um",
	"thank you",
	"thanks for watching",
	"bye",
}

// Config bounds and tunes the conversation loop.
type Config struct {
	// Record parameterizes each utterance capture.
	Record audio.RecordParams

	// MaxTurns caps the number of caller utterances per call.
	MaxTurns int

	// MaxDuration caps the call's wall-clock length.
	MaxDuration time.Duration

	// FallbackReply is spoken when reply generation fails.
	FallbackReply string

	// IgnoredPhrases are transcripts discarded without a reply. Recognizers
	// hallucinate a few stock phrases on near-silence; listing them here
	// keeps the device from answering an empty room.
	IgnoredPhrases []string

	// BannedWords cause the transcript to be discarded with an apology.
	BannedWords []string
}

// Backends are the capability implementations a call runs against.
type Backends struct {
	Player      audio.Player
	Recorder    audio.Recorder
	Transcriber stt.Transcriber
	Responder   reply.Responder
	Synthesizer tts.Synthesizer
}

// Machine consumes hook events and runs at most one call at a time.
type Machine struct {
	be      Backends
	prompts *prompt.Library
	bus     *events.Bus
	sink    RecordSink
	cfg     Config
	log     *slog.Logger

	mu      sync.Mutex
	current *Session
}

// NewMachine assembles the state machine. bus is required; sink may be nil
// when call history is disabled.
func NewMachine(be Backends, prompts *prompt.Library, bus *events.Bus, sink RecordSink, cfg Config, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{be: be, prompts: prompts, bus: bus, sink: sink, cfg: cfg, log: logger}
}

// Current returns a snapshot of the active session, or ok=false when idle.
func (m *Machine) Current() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Snapshot{}, false
	}
	return m.current.Snapshot(), true
}

// Run consumes hook events until ctx is cancelled or the channel closes.
// PickedUp starts a call unless one is active; HungUp cancels the active
// call and waits for it to wind down before the next event is considered.
func (m *Machine) Run(ctx context.Context, hooks <-chan hook.Event) error {
	var (
		callCancel context.CancelFunc
		callDone   chan struct{}
	)
	stopCall := func(reason string) {
		if callCancel == nil {
			return
		}
		m.mu.Lock()
		if m.current != nil {
			m.current.setReason(reason)
		}
		m.mu.Unlock()
		callCancel()
		<-callDone
		callCancel, callDone = nil, nil
	}

	for {
		select {
		case <-ctx.Done():
			stopCall(ReasonShutdown)
			return ctx.Err()

		case <-callDone:
			// Call ended on its own (cap or device error).
			callCancel()
			callCancel, callDone = nil, nil

		case ev, ok := <-hooks:
			if !ok {
				stopCall(ReasonShutdown)
				return nil
			}
			switch ev.Type {
			case hook.PickedUp:
				if callCancel != nil {
					m.log.Debug("pickup ignored, call already active")
					continue
				}
				callCtx, cancel := context.WithCancel(ctx)
				callCancel = cancel
				callDone = make(chan struct{})
				s := newSession()
				m.mu.Lock()
				m.current = s
				m.mu.Unlock()
				go func() {
					defer close(callDone)
					m.runCall(callCtx, s)
					m.mu.Lock()
					m.current = nil
					m.mu.Unlock()
				}()

			case hook.HungUp:
				if callCancel == nil {
					continue
				}
				stopCall(ReasonHungUp)
			}
		}
	}
}

// runCall drives one conversation. ctx is cancelled when the caller hangs up
// or the daemon shuts down; every stage below returns promptly on that.
func (m *Machine) runCall(ctx context.Context, s *Session) {
	start := time.Now()
	m.log.Info("call started", "session", s.ID())
	m.bus.Publish(events.Event{Type: events.TypeCallStarted, Session: s.ID()})

	reason := m.converse(ctx, s, start)
	s.setReason(reason)

	m.transition(s, StateTerminating)
	snap := s.Snapshot()
	m.log.Info("call ended",
		"session", s.ID(),
		"reason", snap.Reason,
		"turns", snap.Turns,
		"duration", time.Since(start).Round(time.Millisecond))
	m.bus.Publish(events.Event{Type: events.TypeCallEnded, Session: s.ID(), Reason: snap.Reason})

	if m.sink != nil {
		rec := Record{
			ID:        s.ID(),
			StartedAt: start,
			EndedAt:   time.Now(),
			Reason:    snap.Reason,
			Turns:     s.Transcript(),
		}
		if err := m.sink.Record(rec); err != nil {
			m.log.Warn("recording call history failed", "session", s.ID(), "error", err)
		}
	}
}

// converse runs the greeting and the turn loop, returning the termination
// reason.
func (m *Machine) converse(ctx context.Context, s *Session, start time.Time) string {
	m.transition(s, StatePrompting)
	if path := m.prompts.StartPrompt(); path != "" {
		if err := m.be.Player.PlayFile(ctx, path); err != nil {
			if ctx.Err() != nil {
				return ReasonHungUp
			}
			m.log.Warn("greeting playback failed", "session", s.ID(), "error", err)
		}
	}

	firstTurn := true
	for {
		if ctx.Err() != nil {
			return ReasonHungUp
		}
		if s.turnCount() >= m.cfg.MaxTurns {
			m.sayGoodbye(ctx, s)
			return ReasonTurnCap
		}
		if m.cfg.MaxDuration > 0 && time.Since(start) >= m.cfg.MaxDuration {
			m.sayGoodbye(ctx, s)
			return ReasonDurationCap
		}

		// LISTENING
		m.transition(s, StateListening)
		t0 := time.Now()
		clip, err := m.be.Recorder.Record(ctx, m.cfg.Record)
		if err != nil {
			if ctx.Err() != nil {
				return ReasonHungUp
			}
			var devErr *audio.DeviceError
			if errors.As(err, &devErr) {
				m.log.Error("audio device failed", "session", s.ID(), "error", err)
				return ReasonDeviceError
			}
			m.log.Warn("recording failed", "session", s.ID(), "error", err)
			m.apologize(ctx, s)
			continue
		}
		m.log.Debug("utterance captured",
			"session", s.ID(),
			"audio", clip.Duration().Round(time.Millisecond),
			"took", time.Since(t0).Round(time.Millisecond))
		if clip.Empty() {
			continue
		}

		if firstTurn {
			if path := m.prompts.StartReply(); path != "" {
				if err := m.be.Player.PlayFile(ctx, path); err != nil && ctx.Err() != nil {
					return ReasonHungUp
				}
			}
		}

		// TRANSCRIBING, with the waiting filler on the first turn
		m.transition(s, StateTranscribing)
		var stopFiller func()
		if firstTurn {
			stopFiller = m.startFiller(ctx, m.prompts.Waiting())
		} else {
			stopFiller = func() {}
		}
		t0 = time.Now()
		text, err := m.be.Transcriber.Transcribe(ctx, clip)
		stopFiller()
		if ctx.Err() != nil {
			return ReasonHungUp
		}
		if err != nil {
			m.log.Warn("transcription failed", "session", s.ID(), "error", err)
			m.apologize(ctx, s)
			continue
		}
		m.log.Debug("transcribed", "session", s.ID(), "text", text,
			"took", time.Since(t0).Round(time.Millisecond))
		if text == "" || m.ignored(text) {
			continue
		}
		if m.banned(text) {
			m.log.Info("transcript discarded", "session", s.ID())
			m.apologize(ctx, s)
			continue
		}
		firstTurn = false

		// THINKING, with a random thinking filler
		m.transition(s, StateThinking)
		history := s.Transcript()
		s.addTurn(reply.RoleCaller, text)
		stopFiller = m.startFiller(ctx, m.prompts.Thinking())
		t0 = time.Now()
		answer, err := m.be.Responder.Reply(ctx, text, history)
		stopFiller()
		if ctx.Err() != nil {
			return ReasonHungUp
		}
		if err != nil {
			m.log.Warn("reply generation failed", "session", s.ID(), "error", err)
			answer = m.cfg.FallbackReply
		}
		m.log.Debug("reply generated", "session", s.ID(),
			"took", time.Since(t0).Round(time.Millisecond))
		if answer == "" {
			continue
		}

		// SPEAKING
		m.transition(s, StateSpeaking)
		t0 = time.Now()
		voice, err := m.be.Synthesizer.Synthesize(ctx, tts.CleanText(answer))
		if ctx.Err() != nil {
			return ReasonHungUp
		}
		if err != nil {
			m.log.Warn("synthesis failed", "session", s.ID(), "error", err)
			s.addTurn(reply.RoleDevice, answer)
			continue
		}
		if err := m.be.Player.PlayClip(ctx, voice); err != nil {
			if ctx.Err() != nil || errors.Is(err, audio.ErrInterrupted) {
				s.addTurn(reply.RoleDevice, answer)
				return ReasonHungUp
			}
			m.log.Warn("reply playback failed", "session", s.ID(), "error", err)
		}
		m.log.Debug("spoke reply", "session", s.ID(),
			"took", time.Since(t0).Round(time.Millisecond))

		s.addTurn(reply.RoleDevice, answer)
		m.bus.Publish(events.Event{
			Type:    events.TypeTurn,
			Session: s.ID(),
			Turn:    s.turnCount(),
			Caller:  text,
			Device:  answer,
		})
	}
}

func (m *Machine) transition(s *Session, st State) {
	s.setState(st)
	m.log.Debug("state", "session", s.ID(), "state", st.String())
	m.bus.Publish(events.Event{Type: events.TypeStateChange, Session: s.ID(), State: st.String()})
}

// sayGoodbye plays the end prompt. Only cap terminations reach here; a
// hang-up has nobody left to talk to.
func (m *Machine) sayGoodbye(ctx context.Context, s *Session) {
	if path := m.prompts.EndPrompt(); path != "" && ctx.Err() == nil {
		if err := m.be.Player.PlayFile(ctx, path); err != nil && ctx.Err() == nil {
			m.log.Warn("goodbye playback failed", "session", s.ID(), "error", err)
		}
	}
}

func (m *Machine) apologize(ctx context.Context, s *Session) {
	if path := m.prompts.Apology(); path != "" && ctx.Err() == nil {
		if err := m.be.Player.PlayFile(ctx, path); err != nil && ctx.Err() == nil {
			m.log.Warn("apology playback failed", "session", s.ID(), "error", err)
		}
	}
}

// startFiller loops the given clip in the background until the returned stop
// function is called. Stop waits for playback to actually cease so the next
// foreground clip never overlaps it.
func (m *Machine) startFiller(ctx context.Context, path string) (stop func()) {
	if path == "" {
		return func() {}
	}
	fctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := m.be.Player.PlayFile(fctx, path); err != nil {
				return
			}
			select {
			case <-fctx.Done():
				return
			case <-time.After(fillerGap):
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (m *Machine) ignored(text string) bool {
	norm := normalize(text)
	for _, p := range m.cfg.IgnoredPhrases {
		if norm == normalize(p) {
			return true
		}
	}
	return false
}

func (m *Machine) banned(text string) bool {
	norm := normalize(text)
	for _, w := range m.cfg.BannedWords {
		if w == "" {
			continue
		}
		for _, field := range strings.Fields(norm) {
			if field == normalize(w) {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Trim(s, ".,!?'\" ")
}
