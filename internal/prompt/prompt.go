// Package prompt manages the library of pre-rendered audio clips the device
// plays around a conversation: the greeting, the waiting and thinking
// fillers, the apology, and the goodbye.
//
// Paths are validated at construction so a missing file fails the daemon at
// startup instead of silencing the phone mid-call. Every prompt is optional;
// an empty path disables it.
package prompt

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Paths names the clip files. Empty entries disable that prompt.
type Paths struct {
	// StartPrompt greets the caller when the handset comes off the cradle.
	StartPrompt string

	// StartReply plays once right after the first utterance is captured.
	StartReply string

	// Waiting loops while the first transcription is in flight.
	Waiting string

	// ThinkingDir holds filler clips; one is picked at random per turn while
	// the response is generated.
	ThinkingDir string

	// EndPrompt plays when the call ends because a conversation cap was hit.
	EndPrompt string

	// Apology plays when a turn fails and the device asks the caller to
	// repeat themselves.
	Apology string
}

// Library is the validated clip collection.
type Library struct {
	paths    Paths
	thinking []string
}

// NewLibrary validates every configured path and indexes the thinking
// directory.
func NewLibrary(p Paths) (*Library, error) {
	for name, path := range map[string]string{
		"start_prompt": p.StartPrompt,
		"start_reply":  p.StartReply,
		"waiting":      p.Waiting,
		"end_prompt":   p.EndPrompt,
		"apology":      p.Apology,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
	}

	lib := &Library{paths: p}
	if p.ThinkingDir != "" {
		entries, err := os.ReadDir(p.ThinkingDir)
		if err != nil {
			return nil, fmt.Errorf("prompt thinking_dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".wav", ".mp3", ".ogg", ".flac":
				lib.thinking = append(lib.thinking, filepath.Join(p.ThinkingDir, e.Name()))
			}
		}
		sort.Strings(lib.thinking)
		if len(lib.thinking) == 0 {
			return nil, fmt.Errorf("prompt thinking_dir %s: no audio files", p.ThinkingDir)
		}
	}
	return lib, nil
}

// StartPrompt returns the greeting clip path, or "" if disabled.
func (l *Library) StartPrompt() string { return l.paths.StartPrompt }

// StartReply returns the first-utterance acknowledgement clip, or "".
func (l *Library) StartReply() string { return l.paths.StartReply }

// Waiting returns the transcription filler clip, or "".
func (l *Library) Waiting() string { return l.paths.Waiting }

// EndPrompt returns the goodbye clip, or "".
func (l *Library) EndPrompt() string { return l.paths.EndPrompt }

// Apology returns the try-again clip, or "".
func (l *Library) Apology() string { return l.paths.Apology }

// Thinking returns a randomly chosen filler clip, or "" when no thinking
// directory is configured.
func (l *Library) Thinking() string {
	if len(l.thinking) == 0 {
		return ""
	}
	return l.thinking[rand.Intn(len(l.thinking))]
}
