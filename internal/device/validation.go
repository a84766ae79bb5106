package device

import (
	"fmt"
	"strings"
)

// maxIdentifierLength bounds ids and numbers; they travel in MQTT topic
// levels and URL path segments.
const maxIdentifierLength = 128

// ValidateDevice checks that d can be stored.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrInvalidDevice)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}

	for _, f := range []struct{ name, value string }{
		{"id", d.ID},
		{"number", d.Number},
		{"old_number", d.OldNumber},
	} {
		if err := validateIdentifier(f.value); err != nil {
			return fmt.Errorf("%w: %s %w", ErrInvalidDevice, f.name, err)
		}
	}
	return nil
}

// validateIdentifier rejects characters that cannot appear in a single
// MQTT topic level. An empty value is allowed (optional alias).
func validateIdentifier(s string) error {
	if len(s) > maxIdentifierLength {
		return fmt.Errorf("exceeds %d characters", maxIdentifierLength)
	}
	if strings.ContainsAny(s, "/+#") {
		return fmt.Errorf("%q contains '/', '+' or '#'", s)
	}
	if strings.TrimSpace(s) != s {
		return fmt.Errorf("%q has leading or trailing whitespace", s)
	}
	return nil
}
