package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/retrophonic/rotaryd/internal/call"
	"github.com/retrophonic/rotaryd/internal/events"
)

type fakeMachine struct {
	snap call.Snapshot
	ok   bool
}

func (f *fakeMachine) Current() (call.Snapshot, bool) { return f.snap, f.ok }

type fakeHistory struct {
	recs []call.Record
}

func (f *fakeHistory) List(limit int) ([]call.Record, error) {
	if limit > 0 && limit < len(f.recs) {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

type fakeHook struct {
	offHook bool
}

func (f *fakeHook) Set(v bool) { f.offHook = v }

func newTestServer(machine StatusSource, history HistorySource, hook HookSetter, bus *events.Bus) *Server {
	return New(Options{
		Port:     0,
		Machine:  machine,
		History:  history,
		Hook:     hook,
		Bus:      bus,
		Backends: map[string]string{"responder": "echo"},
	})
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil, nil, events.NewBus())
	rr := httptest.NewRecorder()
	s.handleHealthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestReadyz(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil, nil, events.NewBus())

	rr := httptest.NewRecorder()
	s.handleReadyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status before ready = %d, want 503", rr.Code)
	}

	s.SetReady(true)
	rr = httptest.NewRecorder()
	s.handleReadyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status after ready = %d, want 200", rr.Code)
	}
}

func TestStatusWithActiveCall(t *testing.T) {
	machine := &fakeMachine{
		snap: call.Snapshot{ID: "abc", State: "listening", Turns: 2},
		ok:   true,
	}
	s := newTestServer(machine, nil, nil, events.NewBus())
	s.SetReady(true)

	rr := httptest.NewRecorder()
	s.handleStatus(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var got status
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !got.Ready {
		t.Error("ready = false, want true")
	}
	if got.Call == nil || got.Call.ID != "abc" || got.Call.State != "listening" {
		t.Errorf("call = %+v", got.Call)
	}
	if got.Backends["responder"] != "echo" {
		t.Errorf("backends = %v", got.Backends)
	}
}

func TestStatusIdle(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil, nil, events.NewBus())
	rr := httptest.NewRecorder()
	s.handleStatus(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	var got status
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.Call != nil {
		t.Errorf("idle daemon reported a call: %+v", got.Call)
	}
}

func TestCalls(t *testing.T) {
	hist := &fakeHistory{recs: []call.Record{
		{ID: "one", Reason: call.ReasonHungUp},
		{ID: "two", Reason: call.ReasonTurnCap},
	}}
	s := newTestServer(&fakeMachine{}, hist, nil, events.NewBus())

	rr := httptest.NewRecorder()
	s.handleCalls(rr, httptest.NewRequest(http.MethodGet, "/calls?limit=1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var recs []call.Record
	if err := json.NewDecoder(rr.Body).Decode(&recs); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "one" {
		t.Errorf("recs = %+v", recs)
	}
}

func TestCallsHistoryDisabled(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil, nil, events.NewBus())
	rr := httptest.NewRecorder()
	s.handleCalls(rr, httptest.NewRequest(http.MethodGet, "/calls", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestCallsBadLimit(t *testing.T) {
	s := newTestServer(&fakeMachine{}, &fakeHistory{}, nil, events.NewBus())
	rr := httptest.NewRecorder()
	s.handleCalls(rr, httptest.NewRequest(http.MethodGet, "/calls?limit=banana", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHookEndpoint(t *testing.T) {
	h := &fakeHook{}
	s := newTestServer(&fakeMachine{}, nil, h, events.NewBus())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(`{"off_hook":true}`))
	s.handleHook(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !h.offHook {
		t.Error("hook state not applied")
	}
}

func TestHookEndpointWithoutManualSource(t *testing.T) {
	s := newTestServer(&fakeMachine{}, nil, nil, events.NewBus())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(`{"off_hook":true}`))
	s.handleHook(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestEventsWebSocket(t *testing.T) {
	bus := events.NewBus()
	s := newTestServer(&fakeMachine{}, nil, nil, bus)

	srv := httptest.NewServer(http.HandlerFunc(s.handleEvents))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The subscription races the publish; retry until it lands.
	go func() {
		for i := 0; i < 50; i++ {
			bus.Publish(events.Event{Type: events.TypeCallStarted, Session: "s1"})
			time.Sleep(20 * time.Millisecond)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev events.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if ev.Type != events.TypeCallStarted || ev.Session != "s1" {
		t.Errorf("event = %+v", ev)
	}
}
