package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrIgnored) {
//	    // emit an ignored result
//	}
var (
	// ErrDeviceNotFound is returned when an address has no registered device.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when adding a device at an address that
	// is already registered.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrIgnored is returned when an address is on the ignore list.
	ErrIgnored = errors.New("device: address ignored")

	// ErrInvalidAddress is returned when an address is not in "0xNN" form.
	ErrInvalidAddress = errors.New("device: invalid address")
)
