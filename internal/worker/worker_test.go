package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeChannel delegates Call to a test-provided function.
type fakeChannel struct {
	call func(ctx context.Context, op string, payload any) ([]byte, error)
}

func (c *fakeChannel) Call(ctx context.Context, op string, payload any) ([]byte, error) {
	return c.call(ctx, op, payload)
}
func (c *fakeChannel) Healthy(context.Context) error { return nil }
func (c *fakeChannel) Close() error                  { return nil }

func TestDoDecodesSuccess(t *testing.T) {
	ch := &fakeChannel{call: func(_ context.Context, op string, _ any) ([]byte, error) {
		if op != "asr" {
			t.Errorf("op = %q, want asr", op)
		}
		return []byte(`{"status":"success","text":"hello"}`), nil
	}}
	w := New(KindASR, ch, time.Second)

	var out struct {
		Text string `json:"text"`
	}
	if err := w.Do(context.Background(), "asr", nil, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out.Text != "hello" {
		t.Errorf("text = %q, want hello", out.Text)
	}
}

func TestDoFailureStatus(t *testing.T) {
	ch := &fakeChannel{call: func(context.Context, string, any) ([]byte, error) {
		return []byte(`{"status":"failure","message":"no speech"}`), nil
	}}
	w := New(KindVAD, ch, time.Second)

	err := w.Do(context.Background(), "record", nil, nil)
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}

func TestDoErrorStatus(t *testing.T) {
	ch := &fakeChannel{call: func(context.Context, string, any) ([]byte, error) {
		return []byte(`{"status":"error","message":"model exploded"}`), nil
	}}
	w := New(KindTTS, ch, time.Second)

	err := w.Do(context.Background(), "tts", nil, nil)
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if werr.Kind != KindTTS || werr.Message != "model exploded" {
		t.Errorf("unexpected error contents: %+v", werr)
	}
}

func TestDoTimesOut(t *testing.T) {
	ch := &fakeChannel{call: func(ctx context.Context, _ string, _ any) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	w := New(KindResponse, ch, 30*time.Millisecond)

	start := time.Now()
	err := w.Do(context.Background(), "response", nil, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout should fire promptly")
	}
}

func TestHangUpOutranksTimeout(t *testing.T) {
	ch := &fakeChannel{call: func(ctx context.Context, _ string, _ any) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	w := New(KindResponse, ch, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := w.Do(ctx, "response", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestResultAfterHangUpDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &fakeChannel{call: func(context.Context, string, any) ([]byte, error) {
		// The caller hangs up just before the worker's answer lands.
		cancel()
		return []byte(`{"status":"success","text":"too late"}`), nil
	}}
	w := New(KindASR, ch, time.Second)

	var out struct {
		Text string `json:"text"`
	}
	err := w.Do(ctx, "asr", nil, &out)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if out.Text != "" {
		t.Errorf("discarded result leaked into out: %q", out.Text)
	}
}

func TestSecondRequestWhileBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	ch := &fakeChannel{call: func(context.Context, string, any) ([]byte, error) {
		close(entered)
		<-release
		return []byte(`{"status":"success"}`), nil
	}}
	w := New(KindResponse, ch, time.Minute)

	done := make(chan error, 1)
	go func() {
		done <- w.Do(context.Background(), "response", nil, nil)
	}()
	<-entered

	if err := w.Do(context.Background(), "response", nil, nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first request failed: %v", err)
	}
}

func TestCancelAbortsInFlight(t *testing.T) {
	entered := make(chan struct{})
	ch := &fakeChannel{call: func(ctx context.Context, _ string, _ any) ([]byte, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	w := New(KindVAD, ch, time.Minute)

	done := make(chan error, 1)
	go func() {
		done <- w.Do(context.Background(), "record", nil, nil)
	}()
	<-entered
	w.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled request did not return")
	}
}

func TestCancelWithoutInFlightIsNoop(t *testing.T) {
	w := New(KindVAD, &fakeChannel{}, time.Second)
	w.Cancel()
}
