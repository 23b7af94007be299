package backend

import (
	"testing"

	"github.com/retrophonic/rotaryd/internal/config"
	replyremote "github.com/retrophonic/rotaryd/internal/reply/remote"
)

func baseConfig() *config.Config {
	return &config.Config{
		Backends: config.BackendsConfig{
			ChatMode:    "chat",
			Personality: "deepseek-memoryless",
			Voice:       "google-tts",
			Hardware:    "phone",
			Language:    "en",
		},
	}
}

func TestBuildResponderMapping(t *testing.T) {
	cases := []struct {
		name        string
		chatMode    string
		personality string
		wantName    string
	}{
		{"echo mode", "echo", "", "echo"},
		{"translate mode", "translate", "", "translate"},
		{"deepseek memoryless", "chat", "deepseek-memoryless", "deepseek"},
		{"deepseek remember", "chat", "deepseek-remember", "deepseek"},
		{"tinyllama", "chat", "tinyllama-memoryless", "tiny_llama"},
		{"markov", "chat", "markov", "random_markov"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Backends.ChatMode = tc.chatMode
			if tc.personality != "" {
				cfg.Backends.Personality = tc.personality
			}
			r, err := buildResponder(cfg, Workers{})
			if err != nil {
				t.Fatalf("buildResponder: %v", err)
			}
			if r.Name() != tc.wantName {
				t.Errorf("Name() = %q, want %q", r.Name(), tc.wantName)
			}
		})
	}
}

func TestBuildResponderUnknown(t *testing.T) {
	cfg := baseConfig()
	cfg.Backends.Personality = "unheard-of"
	if _, err := buildResponder(cfg, Workers{}); err == nil {
		t.Error("expected error for unknown personality")
	}
}

func TestBuildResponderRememberFlag(t *testing.T) {
	cfg := baseConfig()
	cfg.Backends.Personality = "deepseek-remember"
	r, err := buildResponder(cfg, Workers{})
	if err != nil {
		t.Fatalf("buildResponder: %v", err)
	}
	if _, ok := r.(*replyremote.Responder); !ok {
		t.Fatalf("responder type = %T, want *remote.Responder", r)
	}
}

func TestBuildSynthesizerMapping(t *testing.T) {
	cases := []struct {
		voice    string
		wantName string
	}{
		{"google-tts", "google"},
		{"custom", "custom"},
		{"terminal", "terminal"},
	}
	for _, tc := range cases {
		t.Run(tc.voice, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Backends.Voice = tc.voice
			s, err := buildSynthesizer(cfg, Workers{})
			if err != nil {
				t.Fatalf("buildSynthesizer: %v", err)
			}
			if s.Name() != tc.wantName {
				t.Errorf("Name() = %q, want %q", s.Name(), tc.wantName)
			}
		})
	}
}

func TestBuildSynthesizerUnknown(t *testing.T) {
	cfg := baseConfig()
	cfg.Backends.Voice = "gramophone"
	if _, err := buildSynthesizer(cfg, Workers{}); err == nil {
		t.Error("expected error for unknown voice")
	}
}
