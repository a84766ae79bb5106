package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // unknown id, number or legacy number
//	}
var (
	// ErrDeviceNotFound is returned when no device matches an id or alias.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrAliasConflict is returned when an id, number or legacy number is
	// already used by a different device.
	ErrAliasConflict = errors.New("device: alias already in use")
)
