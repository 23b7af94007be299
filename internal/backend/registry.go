// Package backend resolves the configured backend names into concrete
// capability implementations. Every name is checked here, at startup, so a
// typo in the config can never surface as a mid-call failure.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/retrophonic/rotaryd/internal/audio"
	audioremote "github.com/retrophonic/rotaryd/internal/audio/remote"
	"github.com/retrophonic/rotaryd/internal/config"
	"github.com/retrophonic/rotaryd/internal/reply"
	replyecho "github.com/retrophonic/rotaryd/internal/reply/echo"
	replyremote "github.com/retrophonic/rotaryd/internal/reply/remote"
	"github.com/retrophonic/rotaryd/internal/stt"
	sttremote "github.com/retrophonic/rotaryd/internal/stt/remote"
	"github.com/retrophonic/rotaryd/internal/tts"
	ttsremote "github.com/retrophonic/rotaryd/internal/tts/remote"
	ttssay "github.com/retrophonic/rotaryd/internal/tts/say"
	"github.com/retrophonic/rotaryd/internal/worker"
)

// Workers holds the connected worker handles the backends run against.
type Workers struct {
	VAD      *worker.Worker
	ASR      *worker.Worker
	Response *worker.Worker
	TTS      *worker.Worker
}

// Set is the resolved capability set for one daemon run.
type Set struct {
	Player      audio.Player
	Recorder    audio.Recorder
	Transcriber stt.Transcriber
	Responder   reply.Responder
	Synthesizer tts.Synthesizer

	closers []func() error
}

// Names describes the resolved set for the control server.
func (s *Set) Names() map[string]string {
	return map[string]string{
		"transcriber": s.Transcriber.Name(),
		"responder":   s.Responder.Name(),
		"synthesizer": s.Synthesizer.Name(),
	}
}

// Close releases every backend.
func (s *Set) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Warn("backend close failed", "error", err)
		}
	}
}

// Build resolves the configured names. config.Validate has already vetted
// them, so an unknown name here is a programming error, reported anyway.
func Build(cfg *config.Config, w Workers) (*Set, error) {
	set := &Set{}

	set.Player = audio.NewExecPlayer(cfg.Audio.PlaybackCommand)

	switch cfg.Backends.Hardware {
	case "phone":
		set.Recorder = audioremote.New(w.VAD)
	case "standard":
		frameBytes := 2 * cfg.Audio.Channels *
			int(float64(cfg.Audio.SampleRate)*cfg.Audio.FrameDuration.Seconds())
		src, err := audio.NewExecSource(cfg.Audio.CaptureCommand,
			cfg.Audio.SampleRate, cfg.Audio.Channels, frameBytes)
		if err != nil {
			return nil, fmt.Errorf("opening capture device: %w", err)
		}
		set.closers = append(set.closers, src.Close)
		set.Recorder = audio.NewStreamRecorder(src,
			cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.FrameDuration)
	default:
		return nil, fmt.Errorf("unknown hardware %q", cfg.Backends.Hardware)
	}

	asr := sttremote.New(w.ASR, cfg.Workers.ASR.Model)
	set.closers = append(set.closers, asr.Close)
	set.Transcriber = asr

	responder, err := buildResponder(cfg, w)
	if err != nil {
		return nil, err
	}
	set.closers = append(set.closers, responder.Close)
	set.Responder = responder

	synth, err := buildSynthesizer(cfg, w)
	if err != nil {
		return nil, err
	}
	set.closers = append(set.closers, synth.Close)
	set.Synthesizer = synth

	return set, nil
}

func buildResponder(cfg *config.Config, w Workers) (reply.Responder, error) {
	switch cfg.Backends.ChatMode {
	case "echo":
		return replyecho.New(), nil
	case "translate":
		return replyremote.New(w.Response, replyremote.Options{
			Model:    "translate",
			Language: cfg.Backends.Language,
		}), nil
	case "chat":
	default:
		return nil, fmt.Errorf("unknown chat_mode %q", cfg.Backends.ChatMode)
	}

	opts := replyremote.Options{SystemPrompt: cfg.Backends.SystemPrompt}
	switch cfg.Backends.Personality {
	case "deepseek-memoryless":
		opts.Model = "deepseek"
	case "deepseek-remember":
		opts.Model = "deepseek"
		opts.Remember = true
	case "tinyllama-memoryless":
		opts.Model = "tiny_llama"
	case "markov":
		opts.Model = "random_markov"
	default:
		return nil, fmt.Errorf("unknown personality %q", cfg.Backends.Personality)
	}
	return replyremote.New(w.Response, opts), nil
}

func buildSynthesizer(cfg *config.Config, w Workers) (tts.Synthesizer, error) {
	switch cfg.Backends.Voice {
	case "google-tts":
		return ttsremote.New(w.TTS, "google", cfg.Backends.Language), nil
	case "custom":
		return ttsremote.New(w.TTS, "custom", cfg.Backends.Language), nil
	case "terminal":
		return ttssay.New(""), nil
	default:
		return nil, fmt.Errorf("unknown voice %q", cfg.Backends.Voice)
	}
}
