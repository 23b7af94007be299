// Package reply defines the interface for reply generation.
//
// A responder turns the caller's transcribed words into the text the device
// speaks back. Memoryful personalities also receive the conversation so far.
package reply

import "context"

// Speaker roles in a conversation turn.
const (
	RoleCaller = "caller"
	RoleDevice = "device"
)

// Turn is one utterance of conversation history.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Responder generates a reply to the caller's words.
type Responder interface {
	// Name returns the backend identifier (e.g., "echo", "deepseek").
	Name() string

	// Reply produces the device's answer. history holds the prior turns of
	// this call, oldest first; memoryless backends ignore it.
	Reply(ctx context.Context, text string, history []Turn) (string, error)

	// Close releases any resources held by the responder.
	Close() error
}
