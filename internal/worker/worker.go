// Package worker implements the request/response channel to the long-lived
// model processes (VAD, ASR, response generation, TTS) and the wrapper that
// enforces the one-outstanding-request contract per worker.
//
// Each worker keeps an expensive model resident and answers one request at a
// time. The channel itself never retries; retry and fallback policy belongs
// to the call state machine. Restarting a crashed worker process belongs to
// the platform's service manager, not to this package.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Kind identifies a worker process.
type Kind string

const (
	KindVAD      Kind = "vad"
	KindASR      Kind = "asr"
	KindResponse Kind = "response"
	KindTTS      Kind = "tts"
)

// Sentinel errors for the failure taxonomy. A cancelled request surfaces as
// context.Canceled, which callers treat as the expected hang-up outcome, not
// a failure.
var (
	// ErrTimeout means the worker did not respond before its deadline and is
	// presumed hung for this request.
	ErrTimeout = errors.New("worker: request timed out")

	// ErrUnavailable means the worker could not be reached at all.
	ErrUnavailable = errors.New("worker: unavailable")

	// ErrBusy means a second request was dispatched while one was in flight.
	// The state machine's sequential design makes this a programming error.
	ErrBusy = errors.New("worker: request already in flight")

	// ErrNoResult means the worker answered but produced nothing (e.g. the
	// VAD worker detected no speech).
	ErrNoResult = errors.New("worker: no result")
)

// Error is an explicit failure response from a worker.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("worker %s: %s", e.Kind, e.Message)
}

// Channel is the transport primitive to one worker process: a synchronous
// call that sends one request and yields the response body, a timeout error,
// or a cancellation error. Implementations normalize transport failures to
// ErrTimeout / ErrUnavailable / context.Canceled.
type Channel interface {
	// Call performs one request. op names the operation ("record", "asr",
	// "response", "tts"); payload is JSON-encoded. Returns the raw response
	// body on success.
	Call(ctx context.Context, op string, payload any) ([]byte, error)

	// Healthy probes the worker's health endpoint.
	Healthy(ctx context.Context) error

	// Close releases the channel's resources.
	Close() error
}

// envelope is the JSON wrapper every worker response carries.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// decodeEnvelope validates the response envelope and decodes the body into
// out when the worker reported success.
func decodeEnvelope(kind Kind, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding %s response: %w", kind, err)
	}
	switch env.Status {
	case "success":
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", kind, err)
		}
		return nil
	case "failure":
		return ErrNoResult
	default:
		return &Error{Kind: kind, Message: env.Message}
	}
}

// Worker wraps a Channel with the per-worker dispatch contract: exactly one
// outstanding request, a deadline per request, and a best-effort asynchronous
// cancel that never waits for the worker to acknowledge.
type Worker struct {
	kind    Kind
	ch      Channel
	timeout time.Duration

	inflight sync.Mutex // held for the duration of one request

	mu     sync.Mutex
	cancel context.CancelFunc // cancels the in-flight request, if any
}

// New creates a worker wrapper with the given default per-request timeout.
func New(kind Kind, ch Channel, timeout time.Duration) *Worker {
	return &Worker{kind: kind, ch: ch, timeout: timeout}
}

// Kind returns the worker's kind.
func (w *Worker) Kind() Kind { return w.kind }

// Do dispatches one request with the default timeout and decodes the
// enveloped result into out.
func (w *Worker) Do(ctx context.Context, op string, payload, out any) error {
	return w.DoWithin(ctx, w.timeout, op, payload, out)
}

// DoWithin is Do with an explicit deadline, used when the request itself is
// long-running (the VAD worker records for up to the utterance cap).
func (w *Worker) DoWithin(ctx context.Context, timeout time.Duration, op string, payload, out any) error {
	if !w.inflight.TryLock() {
		return ErrBusy
	}
	defer w.inflight.Unlock()

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.cancel = nil
		w.mu.Unlock()
		cancel()
	}()

	body, err := w.ch.Call(reqCtx, op, payload)
	if err != nil {
		// The caller hanging up outranks a deadline that fired at the same
		// moment.
		if ctx.Err() != nil {
			return context.Canceled
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	}
	if ctx.Err() != nil {
		// Result arrived after hang-up: discard it.
		return context.Canceled
	}
	return decodeEnvelope(w.kind, body, out)
}

// Cancel aborts the in-flight request, if any. It returns immediately; the
// pending result is discarded locally without waiting for the worker.
func (w *Worker) Cancel() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Healthy probes the worker process.
func (w *Worker) Healthy(ctx context.Context) error {
	return w.ch.Healthy(ctx)
}

// Close releases the underlying channel.
func (w *Worker) Close() error {
	return w.ch.Close()
}
