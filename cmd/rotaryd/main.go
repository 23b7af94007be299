// Rotaryd is the voice chatbot daemon for a rotary telephone: pick up the
// handset and talk to it. The daemon watches the hook switch, records the
// caller through the handset, and answers through it, delegating the heavy
// models to resident worker processes.
//
// Usage:
//
//	rotaryd [flags]
//	rotaryd --config /path/to/rotaryd.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/retrophonic/rotaryd/internal/audio"
	"github.com/retrophonic/rotaryd/internal/backend"
	"github.com/retrophonic/rotaryd/internal/call"
	"github.com/retrophonic/rotaryd/internal/config"
	"github.com/retrophonic/rotaryd/internal/control"
	"github.com/retrophonic/rotaryd/internal/events"
	"github.com/retrophonic/rotaryd/internal/history"
	"github.com/retrophonic/rotaryd/internal/hook"
	"github.com/retrophonic/rotaryd/internal/prompt"
	"github.com/retrophonic/rotaryd/internal/publish"
	"github.com/retrophonic/rotaryd/internal/worker"

	_ "github.com/retrophonic/rotaryd/docs"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/rotaryd.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rotaryd %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("rotaryd starting", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Connect the worker processes and fail fast if any is unreachable:
	// a phone that answers nothing is worse than a daemon that won't start.
	workers, err := connectWorkers(ctx, cfg)
	if err != nil {
		slog.Error("worker setup failed", "error", err)
		os.Exit(1)
	}

	// Resolve the configured backends against the workers.
	set, err := backend.Build(cfg, workers)
	if err != nil {
		slog.Error("backend setup failed", "error", err)
		os.Exit(1)
	}
	defer set.Close()
	slog.Info("backends resolved",
		"chat_mode", cfg.Backends.ChatMode,
		"personality", cfg.Backends.Personality,
		"voice", cfg.Backends.Voice,
		"hardware", cfg.Backends.Hardware)

	// Prompt clips are validated up front; a missing file is a config error.
	prompts, err := prompt.NewLibrary(prompt.Paths{
		StartPrompt: cfg.Prompts.StartPrompt,
		StartReply:  cfg.Prompts.StartReply,
		Waiting:     cfg.Prompts.Waiting,
		ThinkingDir: cfg.Prompts.ThinkingDir,
		EndPrompt:   cfg.Prompts.EndPrompt,
		Apology:     cfg.Prompts.Apology,
	})
	if err != nil {
		slog.Error("prompt setup failed", "error", err)
		os.Exit(1)
	}

	bus := events.NewBus()

	// Optional call history.
	var sink call.RecordSink
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(history.Options{Dir: cfg.History.Path})
		if err != nil {
			slog.Error("history setup failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		sink = store
	}

	// Hook switch.
	src, manual, err := buildHookSource(cfg)
	if err != nil {
		slog.Error("hook setup failed", "error", err)
		os.Exit(1)
	}
	defer src.Close()
	monitor := hook.NewMonitor(src, cfg.Hook.Debounce, cfg.Hook.PollInterval, slog.Default())

	machine := call.NewMachine(call.Backends{
		Player:      set.Player,
		Recorder:    set.Recorder,
		Transcriber: set.Transcriber,
		Responder:   set.Responder,
		Synthesizer: set.Synthesizer,
	}, prompts, bus, sink, call.Config{
		Record: audio.RecordParams{
			SilenceDuration:  cfg.Recording.SilenceDuration,
			MinDuration:      cfg.Recording.MinUtterance,
			MaxDuration:      cfg.Recording.MaxUtterance,
			SilenceThreshold: cfg.Recording.SilenceThreshold,
		},
		MaxTurns:       cfg.Call.MaxTurns,
		MaxDuration:    cfg.Call.MaxDuration,
		FallbackReply:  cfg.Backends.FallbackReply,
		IgnoredPhrases: call.DefaultIgnoredPhrases,
		BannedWords:    loadBannedWords(cfg.Backends.BannedWordsFile),
	}, slog.Default())

	// Optional MQTT event publishing.
	if cfg.Events.MQTT.Enabled {
		pub, err := publish.NewMQTT(cfg.Events.MQTT.Broker,
			cfg.Events.MQTT.ClientID, cfg.Events.MQTT.Topic, slog.Default())
		if err != nil {
			slog.Error("mqtt setup failed", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		sub, unsub := bus.Subscribe(64)
		defer unsub()
		go pub.Run(ctx, sub)
	}

	// Control server.
	var histSource control.HistorySource
	if store != nil {
		histSource = store
	}
	var hookSetter control.HookSetter
	if manual != nil {
		hookSetter = manual
	}
	ctrl := control.New(control.Options{
		Port:     cfg.Server.ControlPort,
		Machine:  machine,
		History:  histSource,
		Hook:     hookSetter,
		Bus:      bus,
		Backends: set.Names(),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ctrl.ListenAndServe(ctx); err != nil {
			slog.Error("control server failed", "error", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("hook monitor failed", "error", err)
			cancel()
		}
	}()

	ctrl.SetReady(true)
	slog.Info("rotaryd ready",
		"control_port", cfg.Server.ControlPort,
		"hook_source", cfg.Hook.Source)

	// The machine blocks until shutdown.
	if err := machine.Run(ctx, monitor.Events()); err != nil && ctx.Err() == nil {
		slog.Error("call machine failed", "error", err)
	}

	slog.Info("shutdown signal received, draining...")
	cancel()
	wg.Wait()

	for _, w := range []*worker.Worker{workers.VAD, workers.ASR, workers.Response, workers.TTS} {
		_ = w.Close()
	}
	slog.Info("rotaryd stopped")
}

// connectWorkers builds a channel per worker kind and probes each one's
// health endpoint.
func connectWorkers(ctx context.Context, cfg *config.Config) (backend.Workers, error) {
	build := func(kind worker.Kind, wc config.WorkerConfig) (*worker.Worker, error) {
		ch, err := worker.NewChannel(kind, wc.Endpoint)
		if err != nil {
			return nil, err
		}
		w := worker.New(kind, ch, wc.Timeout)
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := w.Healthy(probeCtx); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%s worker at %s: %w", kind, wc.Endpoint, err)
		}
		slog.Info("worker connected", "kind", kind, "endpoint", wc.Endpoint)
		return w, nil
	}

	var (
		out backend.Workers
		err error
	)
	if out.VAD, err = build(worker.KindVAD, cfg.Workers.VAD); err != nil {
		return out, err
	}
	if out.ASR, err = build(worker.KindASR, cfg.Workers.ASR); err != nil {
		return out, err
	}
	if out.Response, err = build(worker.KindResponse, cfg.Workers.Response); err != nil {
		return out, err
	}
	if out.TTS, err = build(worker.KindTTS, cfg.Workers.TTS); err != nil {
		return out, err
	}
	return out, nil
}

// buildHookSource returns the configured hook source; the second return is
// non-nil when the source is drivable from the control server.
func buildHookSource(cfg *config.Config) (hook.Source, *hook.ManualSource, error) {
	switch cfg.Hook.Source {
	case "gpio":
		return &hook.PinSource{
			Path:      cfg.Hook.ValuePath,
			ActiveLow: cfg.Hook.ActiveLow,
		}, nil, nil
	case "stdin":
		return hook.NewStdinSource(os.Stdin), nil, nil
	case "manual":
		m := hook.NewManualSource()
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown hook source %q", cfg.Hook.Source)
	}
}

// loadBannedWords reads the optional newline-separated word list. A missing
// file was already caught by config validation when the path was set.
func loadBannedWords(path string) []string {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("banned words file unreadable", "path", path, "error", err)
		return nil
	}
	var words []string
	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			words = append(words, line)
		}
	}
	return words
}
