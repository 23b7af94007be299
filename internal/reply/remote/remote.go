// Package remote implements reply.Responder against the resident response
// worker process, which hosts the actual generators (translation, a markov
// model, small and hosted LLMs) behind one endpoint.
package remote

import (
	"context"
	"fmt"

	"github.com/retrophonic/rotaryd/internal/reply"
	"github.com/retrophonic/rotaryd/internal/worker"
)

// Options configure which generator the worker runs and how.
type Options struct {
	// Model is the generator name understood by the worker
	// (e.g. "translate", "random_markov", "tiny_llama", "deepseek").
	Model string

	// SystemPrompt conditions LLM generators.
	SystemPrompt string

	// Language is the target language for the translate generator.
	Language string

	// Remember sends the conversation history with each request.
	Remember bool
}

// Responder sends generation requests to the response worker.
type Responder struct {
	w    *worker.Worker
	opts Options
}

// New creates a remote responder.
func New(w *worker.Worker, opts Options) *Responder {
	return &Responder{w: w, opts: opts}
}

// Name returns the backend identifier.
func (r *Responder) Name() string { return r.opts.Model }

// Reply asks the worker for a reply to the caller's words.
func (r *Responder) Reply(ctx context.Context, text string, history []reply.Turn) (string, error) {
	payload := map[string]any{
		"text":          text,
		"model":         r.opts.Model,
		"system_prompt": r.opts.SystemPrompt,
		"language":      r.opts.Language,
	}
	if r.opts.Remember && len(history) > 0 {
		payload["history"] = history
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := r.w.Do(ctx, "response", payload, &result); err != nil {
		return "", fmt.Errorf("response: %w", err)
	}
	return result.Response, nil
}

// Close releases the worker channel.
func (r *Responder) Close() error { return r.w.Close() }
