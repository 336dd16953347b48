package regmap

import "errors"

// Domain errors for the regmap package.
var (
	// ErrMapLoad is returned when a register map file is missing or
	// malformed. Devices whose map fails to load run in raw-hex mode.
	ErrMapLoad = errors.New("regmap: register map load failed")

	// ErrUnsupportedFormat is returned when a register's format tag is not
	// one of the known encodings.
	ErrUnsupportedFormat = errors.New("regmap: unsupported format")
)
