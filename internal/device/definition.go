package device

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nerrad567/busdecode/internal/regmap"
)

// Definition is a device declared in configuration.
type Definition struct {
	Name        string
	Address     string
	Description string

	// Parser is the register map file name, relative to the devices
	// directory. Empty means raw-hex mode.
	Parser string

	Verbosity     Verbosity
	Color         string
	CommandLength int
}

// NewStateFromDefinition builds a device from its definition, loading the
// register map from devicesDir.
//
// A map that cannot be loaded is not an error: the device is returned in
// raw-hex mode and the load error is returned alongside it so the caller
// can report it.
//
// Parameters:
//   - def: Device definition from configuration
//   - devicesDir: Directory holding register map files
//
// Returns:
//   - *State: The device, never nil
//   - error: Wrapped regmap.ErrMapLoad when the map failed to load
func NewStateFromDefinition(def Definition, devicesDir string) (*State, error) {
	var (
		m       *regmap.Map
		loadErr error
	)
	if def.Parser != "" {
		m, loadErr = regmap.LoadFile(filepath.Join(devicesDir, def.Parser))
		if loadErr != nil {
			m = nil
		}
	}

	s := NewState(def.Address, def.Name, m)
	s.Description = def.Description
	s.Verbosity = def.Verbosity
	s.CommandLength = def.CommandLength
	s.Color, _ = NormalizeColor(def.Color)

	return s, loadErr
}

// LoadDefinitions registers every configured device.
//
// Map load failures degrade the device to raw-hex mode and are logged.
// Devices whose address is on the ignore list are skipped. Any other
// registration failure aborts the load.
func LoadDefinitions(r *Registry, defs []Definition, devicesDir string) error {
	for _, def := range defs {
		if r.IsIgnored(def.Address) {
			r.logger.Info("configured device ignored", "address", def.Address, "name", def.Name)
			continue
		}

		s, err := NewStateFromDefinition(def, devicesDir)
		if err != nil {
			r.logger.Warn("register map unavailable, using raw decoding",
				"address", def.Address,
				"name", def.Name,
				"parser", def.Parser,
				"error", err,
			)
		}
		if _, ok := NormalizeColor(def.Color); !ok && def.Color != "" {
			r.logger.Warn("unknown colour, using default",
				"address", def.Address,
				"color", def.Color,
				"default", ColorDefault,
			)
		}

		if err := r.Add(s); err != nil {
			if errors.Is(err, ErrIgnored) {
				continue
			}
			return fmt.Errorf("registering %s (%s): %w", def.Name, def.Address, err)
		}
	}
	return nil
}
