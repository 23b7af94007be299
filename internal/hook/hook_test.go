package hook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func startMonitor(t *testing.T, src Source, debounce, poll time.Duration) <-chan Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := NewMonitor(src, debounce, poll, nil)
	go m.Run(ctx)
	// Let Run take its baseline reading before the caller flips the state.
	time.Sleep(50 * time.Millisecond)
	return m.Events()
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hook event")
		return Event{}
	}
}

func TestMonitorEmitsDebouncedTransitions(t *testing.T) {
	src := NewManualSource()
	events := startMonitor(t, src, 20*time.Millisecond, 5*time.Millisecond)

	src.Set(true)
	if ev := waitEvent(t, events); ev.Type != PickedUp {
		t.Fatalf("event = %v, want PickedUp", ev.Type)
	}

	src.Set(false)
	if ev := waitEvent(t, events); ev.Type != HungUp {
		t.Fatalf("event = %v, want HungUp", ev.Type)
	}
}

func TestMonitorSuppressesBounce(t *testing.T) {
	src := NewManualSource()
	events := startMonitor(t, src, 150*time.Millisecond, 5*time.Millisecond)

	// Chatter well inside the debounce window.
	for i := 0; i < 5; i++ {
		src.Set(true)
		time.Sleep(10 * time.Millisecond)
		src.Set(false)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case ev := <-events:
		t.Fatalf("bounce produced event %v", ev.Type)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestMonitorBaselineProducesNoEvent(t *testing.T) {
	src := NewManualSource()
	src.Set(true) // off-hook before the monitor starts
	events := startMonitor(t, src, 20*time.Millisecond, 5*time.Millisecond)

	select {
	case ev := <-events:
		t.Fatalf("startup state produced event %v", ev.Type)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestPinSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value")

	cases := []struct {
		name      string
		value     string
		activeLow bool
		want      bool
	}{
		{"high", "1\n", false, true},
		{"low", "0\n", false, false},
		{"high active-low", "1\n", true, false},
		{"low active-low", "0\n", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := os.WriteFile(path, []byte(tc.value), 0o644); err != nil {
				t.Fatal(err)
			}
			src := &PinSource{Path: path, ActiveLow: tc.activeLow}
			got, err := src.OffHook()
			if err != nil {
				t.Fatalf("OffHook: %v", err)
			}
			if got != tc.want {
				t.Errorf("OffHook() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPinSourceMissingFile(t *testing.T) {
	src := &PinSource{Path: filepath.Join(t.TempDir(), "gone")}
	if _, err := src.OffHook(); err == nil {
		t.Error("expected error for missing value file")
	}
}

func TestStdinSourceToggles(t *testing.T) {
	src := NewStdinSource(strings.NewReader("x\n"))

	deadline := time.Now().Add(time.Second)
	for {
		off, _ := src.OffHook()
		if off {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("line did not toggle the handset state")
		}
		time.Sleep(time.Millisecond)
	}
}
