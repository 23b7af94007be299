// Package echo implements the reply.Responder that repeats the caller's
// words back. It needs no worker process and never fails, which also makes
// it the backend of choice for hardware bring-up.
package echo

import (
	"context"

	"github.com/retrophonic/rotaryd/internal/reply"
)

// Responder echoes its input.
type Responder struct{}

// New creates an echo responder.
func New() *Responder { return &Responder{} }

// Name returns the backend identifier.
func (r *Responder) Name() string { return "echo" }

// Reply returns the input text unchanged.
func (r *Responder) Reply(_ context.Context, text string, _ []reply.Turn) (string, error) {
	return text, nil
}

// Close is a no-op.
func (r *Responder) Close() error { return nil }
