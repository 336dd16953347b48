package i2c

import "errors"

// Domain errors for the i2c package.
var (
	// ErrInvalidAddress is returned when an address or register string is
	// not in "0xNN" form.
	ErrInvalidAddress = errors.New("i2c: invalid address")
)
