// Package config handles loading and validating the rotaryd configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Recognized backend names. Unknown names fail at startup, never mid-call.
var (
	ChatModes     = []string{"echo", "translate", "chat"}
	Personalities = []string{"deepseek-memoryless", "deepseek-remember", "tinyllama-memoryless", "markov"}
	Voices        = []string{"google-tts", "terminal", "custom"}
	Hardware      = []string{"phone", "standard"}
)

// Config is the root configuration for the rotaryd daemon.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Hook      HookConfig      `mapstructure:"hook"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Recording RecordingConfig `mapstructure:"recording"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	Backends  BackendsConfig  `mapstructure:"backends"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Call      CallConfig      `mapstructure:"call"`
	Events    EventsConfig    `mapstructure:"events"`
	History   HistoryConfig   `mapstructure:"history"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds the control/health server settings.
type ServerConfig struct {
	ControlPort int `mapstructure:"control_port"`
}

// HookConfig configures the hook-switch monitor.
type HookConfig struct {
	// Source selects the hook signal source: "gpio", "stdin", or "manual".
	Source string `mapstructure:"source"`

	// ValuePath is the file holding the GPIO line value ("0"/"1"),
	// e.g. /sys/class/gpio/gpio17/value. Used when Source is "gpio".
	ValuePath string `mapstructure:"value_path"`

	// ActiveLow inverts the line: "0" means off-hook.
	ActiveLow bool `mapstructure:"active_low"`

	// PollInterval is how often the signal is sampled.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Debounce is the minimum stable duration before a transition is emitted.
	Debounce time.Duration `mapstructure:"debounce"`
}

// AudioConfig configures the local audio device.
type AudioConfig struct {
	SampleRate    int           `mapstructure:"sample_rate"`
	Channels      int           `mapstructure:"channels"`
	FrameDuration time.Duration `mapstructure:"frame_duration"`

	// PlaybackCommand is the external player invoked for clips and prompt
	// files. Empty selects a platform default (ffplay on Linux, afplay on
	// macOS).
	PlaybackCommand string `mapstructure:"playback_command"`

	// CaptureCommand is the external recorder producing raw signed 16-bit LE
	// PCM on stdout. Empty selects arecord.
	CaptureCommand string `mapstructure:"capture_command"`
}

// RecordingConfig holds utterance capture parameters.
type RecordingConfig struct {
	// SilenceDuration is how much trailing silence ends an utterance.
	SilenceDuration time.Duration `mapstructure:"silence_duration"`

	// MinUtterance is the minimum accepted utterance duration; silence is
	// ignored until this much audio has been captured.
	MinUtterance time.Duration `mapstructure:"min_utterance"`

	// MaxUtterance hard-caps recording length.
	MaxUtterance time.Duration `mapstructure:"max_utterance"`

	// SilenceThreshold is the RMS level (0..1) below which a frame counts
	// as silence.
	SilenceThreshold float64 `mapstructure:"silence_threshold"`
}

// PromptsConfig lists the clip files played around a conversation.
// An empty path disables that prompt.
type PromptsConfig struct {
	StartPrompt string `mapstructure:"start_prompt"`
	StartReply  string `mapstructure:"start_reply"`
	Waiting     string `mapstructure:"waiting"`
	ThinkingDir string `mapstructure:"thinking_dir"`
	EndPrompt   string `mapstructure:"end_prompt"`
	Apology     string `mapstructure:"apology"`
}

// BackendsConfig selects which backend serves each capability.
type BackendsConfig struct {
	ChatMode    string `mapstructure:"chat_mode"`
	Personality string `mapstructure:"personality"`
	Voice       string `mapstructure:"voice"`
	Hardware    string `mapstructure:"hardware"`

	// Language is the target language for the translate chat mode and for
	// TTS voice selection ("en", "fr", "zh-CN", ...).
	Language string `mapstructure:"language"`

	// SystemPrompt conditions LLM personalities.
	SystemPrompt string `mapstructure:"system_prompt"`

	// FallbackReply is spoken when the response backend fails or times out.
	FallbackReply string `mapstructure:"fallback_reply"`

	// BannedWordsFile is an optional newline-separated word list; turns whose
	// transcript contains any listed word are skipped.
	BannedWordsFile string `mapstructure:"banned_words_file"`
}

// WorkersConfig holds one endpoint per worker kind.
type WorkersConfig struct {
	VAD      WorkerConfig `mapstructure:"vad"`
	ASR      WorkerConfig `mapstructure:"asr"`
	Response WorkerConfig `mapstructure:"response"`
	TTS      WorkerConfig `mapstructure:"tts"`
}

// WorkerConfig describes how to reach a single worker process.
type WorkerConfig struct {
	// Endpoint is the worker address. Scheme selects the transport:
	// http:// or https:// for the JSON protocol, grpc:// for gRPC.
	Endpoint string `mapstructure:"endpoint"`

	// Timeout is the per-request deadline. The VAD worker additionally gets
	// recording.max_utterance added on top.
	Timeout time.Duration `mapstructure:"timeout"`

	// Model names the model the worker should use (e.g. "vosk").
	Model string `mapstructure:"model"`
}

// CallConfig bounds a single conversation.
type CallConfig struct {
	MaxTurns    int           `mapstructure:"max_turns"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

// EventsConfig configures outbound call-event publishing.
type EventsConfig struct {
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// MQTTConfig configures the optional MQTT event publisher.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

// HistoryConfig configures the on-disk call log.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./rotaryd.yaml, ./configs/rotaryd.yaml,
// /etc/rotaryd/rotaryd.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.control_port", 8081)
	v.SetDefault("hook.source", "gpio")
	v.SetDefault("hook.value_path", "/sys/class/gpio/gpio17/value")
	v.SetDefault("hook.active_low", false)
	v.SetDefault("hook.poll_interval", "20ms")
	v.SetDefault("hook.debounce", "150ms")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.frame_duration", "20ms")
	v.SetDefault("recording.silence_duration", "1500ms")
	v.SetDefault("recording.min_utterance", "1s")
	v.SetDefault("recording.max_utterance", "30s")
	v.SetDefault("recording.silence_threshold", 0.015)
	v.SetDefault("backends.chat_mode", "chat")
	v.SetDefault("backends.personality", "deepseek-memoryless")
	v.SetDefault("backends.voice", "google-tts")
	v.SetDefault("backends.hardware", "phone")
	v.SetDefault("backends.language", "en")
	v.SetDefault("backends.fallback_reply", "Sorry, I did not catch that. Could you say it again?")
	v.SetDefault("workers.vad.endpoint", "http://localhost:8010")
	v.SetDefault("workers.vad.timeout", "3s")
	v.SetDefault("workers.asr.endpoint", "http://localhost:8011")
	v.SetDefault("workers.asr.timeout", "10s")
	v.SetDefault("workers.asr.model", "vosk")
	v.SetDefault("workers.response.endpoint", "http://localhost:8012")
	v.SetDefault("workers.response.timeout", "10s")
	v.SetDefault("workers.tts.endpoint", "http://localhost:8013")
	v.SetDefault("workers.tts.timeout", "10s")
	v.SetDefault("call.max_turns", 50)
	v.SetDefault("call.max_duration", "10m")
	v.SetDefault("events.mqtt.enabled", false)
	v.SetDefault("events.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("events.mqtt.topic", "rotaryd/events")
	v.SetDefault("events.mqtt.client_id", "rotaryd")
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "/var/lib/rotaryd/history")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("rotaryd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/rotaryd")
	}

	// Environment variables: ROTARYD_HOOK_SOURCE, ROTARYD_BACKENDS_VOICE, etc.
	v.SetEnvPrefix("ROTARYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in broker credentials ("${MQTT_BROKER}" etc).
	cfg.Events.MQTT.Broker = resolveEnvRef(cfg.Events.MQTT.Broker)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks backend names and parameter sanity. All violations are
// startup errors; nothing here is deferred to mid-call.
func (c *Config) Validate() error {
	if !contains(ChatModes, c.Backends.ChatMode) {
		return fmt.Errorf("unknown chat_mode %q (recognized: %s)", c.Backends.ChatMode, strings.Join(ChatModes, ", "))
	}
	if !contains(Personalities, c.Backends.Personality) {
		return fmt.Errorf("unknown personality %q (recognized: %s)", c.Backends.Personality, strings.Join(Personalities, ", "))
	}
	if !contains(Voices, c.Backends.Voice) {
		return fmt.Errorf("unknown voice %q (recognized: %s)", c.Backends.Voice, strings.Join(Voices, ", "))
	}
	if !contains(Hardware, c.Backends.Hardware) {
		return fmt.Errorf("unknown hardware %q (recognized: %s)", c.Backends.Hardware, strings.Join(Hardware, ", "))
	}
	switch c.Hook.Source {
	case "gpio", "stdin", "manual":
	default:
		return fmt.Errorf("unknown hook source %q (recognized: gpio, stdin, manual)", c.Hook.Source)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}
	if c.Recording.MaxUtterance <= 0 {
		return fmt.Errorf("recording.max_utterance must be positive, got %s", c.Recording.MaxUtterance)
	}
	if c.Recording.MinUtterance > c.Recording.MaxUtterance {
		return fmt.Errorf("recording.min_utterance %s exceeds max_utterance %s",
			c.Recording.MinUtterance, c.Recording.MaxUtterance)
	}
	if c.Recording.SilenceThreshold < 0 || c.Recording.SilenceThreshold > 1 {
		return fmt.Errorf("recording.silence_threshold must be in [0,1], got %g", c.Recording.SilenceThreshold)
	}
	if c.Call.MaxTurns <= 0 {
		return fmt.Errorf("call.max_turns must be positive, got %d", c.Call.MaxTurns)
	}
	if c.Backends.BannedWordsFile != "" {
		if _, err := os.Stat(c.Backends.BannedWordsFile); err != nil {
			return fmt.Errorf("banned_words_file: %w", err)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
