package hook

import "sync/atomic"

// ManualSource is a hook switch driven programmatically, used by the control
// server's hook endpoint and by tests.
type ManualSource struct {
	offHook atomic.Bool
}

// NewManualSource creates a source with the handset on the cradle.
func NewManualSource() *ManualSource { return &ManualSource{} }

// Set replaces the handset state.
func (s *ManualSource) Set(offHook bool) { s.offHook.Store(offHook) }

// OffHook reports the current state.
func (s *ManualSource) OffHook() (bool, error) { return s.offHook.Load(), nil }

// Close is a no-op.
func (s *ManualSource) Close() error { return nil }
