package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/retrophonic/rotaryd/internal/audio"
	"github.com/retrophonic/rotaryd/internal/worker"
)

type fakeChannel struct {
	calls    int
	lastOp   string
	lastBody map[string]any
	respond  string
}

func (c *fakeChannel) Call(_ context.Context, op string, payload any) ([]byte, error) {
	c.calls++
	c.lastOp = op
	raw, _ := json.Marshal(payload)
	_ = json.Unmarshal(raw, &c.lastBody)
	return []byte(c.respond), nil
}
func (c *fakeChannel) Healthy(context.Context) error { return nil }
func (c *fakeChannel) Close() error                  { return nil }

func TestTranscribe(t *testing.T) {
	ch := &fakeChannel{respond: `{"status":"success","text":"  hello world \n"}`}
	tr := New(worker.New(worker.KindASR, ch, time.Second), "vosk")

	clip := &audio.Clip{PCM: []byte{1, 2, 3, 4}, SampleRate: 16000, Channels: 1}
	text, err := tr.Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want trimmed %q", text, "hello world")
	}
	if ch.lastOp != "asr" {
		t.Errorf("op = %q, want asr", ch.lastOp)
	}
	if ch.lastBody["model"] != "vosk" {
		t.Errorf("model = %v, want vosk", ch.lastBody["model"])
	}

	// The audio travels as a base64 WAV.
	raw, err := base64.StdEncoding.DecodeString(ch.lastBody["audio"].(string))
	if err != nil {
		t.Fatalf("audio is not base64: %v", err)
	}
	decoded, err := audio.DecodeWAV(raw)
	if err != nil {
		t.Fatalf("audio is not WAV: %v", err)
	}
	if decoded.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", decoded.SampleRate)
	}
}

func TestTranscribeEmptyClipSkipsWorker(t *testing.T) {
	ch := &fakeChannel{respond: `{"status":"success","text":"ghost"}`}
	tr := New(worker.New(worker.KindASR, ch, time.Second), "vosk")

	text, err := tr.Transcribe(context.Background(), &audio.Clip{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if ch.calls != 0 {
		t.Errorf("worker called %d times for an empty clip", ch.calls)
	}
}

func TestDefaultModel(t *testing.T) {
	tr := New(worker.New(worker.KindASR, &fakeChannel{}, time.Second), "")
	if tr.Name() != "vosk" {
		t.Errorf("Name() = %q, want vosk", tr.Name())
	}
}
