package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/retrophonic/rotaryd/internal/audio"
	"github.com/retrophonic/rotaryd/internal/worker"
)

type fakeChannel struct {
	lastBody map[string]any
	respond  func() []byte
}

func (c *fakeChannel) Call(_ context.Context, _ string, payload any) ([]byte, error) {
	raw, _ := json.Marshal(payload)
	_ = json.Unmarshal(raw, &c.lastBody)
	return c.respond(), nil
}
func (c *fakeChannel) Healthy(context.Context) error { return nil }
func (c *fakeChannel) Close() error                  { return nil }

func TestSynthesize(t *testing.T) {
	speech := &audio.Clip{PCM: []byte{9, 8, 7, 6}, SampleRate: 22050, Channels: 1}
	ch := &fakeChannel{respond: func() []byte {
		encoded := base64.StdEncoding.EncodeToString(speech.WAV())
		return []byte(fmt.Sprintf(`{"status":"success","audio":%q}`, encoded))
	}}
	s := New(worker.New(worker.KindTTS, ch, time.Second), "google", "en")

	clip, err := s.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if clip.SampleRate != 22050 {
		t.Errorf("sample rate = %d, want 22050", clip.SampleRate)
	}
	if len(clip.PCM) != 4 {
		t.Errorf("PCM = %d bytes, want 4", len(clip.PCM))
	}
	if ch.lastBody["text"] != "hello" || ch.lastBody["model"] != "google" || ch.lastBody["language"] != "en" {
		t.Errorf("payload = %v", ch.lastBody)
	}
}

func TestSynthesizeBadAudio(t *testing.T) {
	ch := &fakeChannel{respond: func() []byte {
		return []byte(`{"status":"success","audio":"not base64!!!"}`)
	}}
	s := New(worker.New(worker.KindTTS, ch, time.Second), "google", "en")

	if _, err := s.Synthesize(context.Background(), "hello"); err == nil {
		t.Error("expected error for undecodable audio")
	}
}
