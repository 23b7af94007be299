package hook

import (
	"bytes"
	"fmt"
	"os"
)

// PinSource reads a GPIO pin through the sysfs value file. The rotary
// phone's hook switch pulls the pin low when the handset rests on the
// cradle, hence ActiveLow defaults to true in the config.
type PinSource struct {
	// Path to the exported pin's value file,
	// e.g. /sys/class/gpio/gpio17/value.
	Path string

	// ActiveLow inverts the reading: a low pin means off-hook.
	ActiveLow bool
}

// OffHook reads the pin.
func (p *PinSource) OffHook() (bool, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return false, fmt.Errorf("reading pin %s: %w", p.Path, err)
	}
	high := len(bytes.TrimSpace(raw)) > 0 && bytes.TrimSpace(raw)[0] != '0'
	if p.ActiveLow {
		return !high, nil
	}
	return high, nil
}

// Close is a no-op; the value file is opened per read.
func (p *PinSource) Close() error { return nil }
