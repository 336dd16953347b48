package device

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/busdecode/internal/i2c"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry maps bus addresses to device state.
//
// Devices are added from configuration at startup and created lazily, in
// raw-hex mode, the first time an unknown address is resolved. Entries are
// never removed. Ignored addresses never get an entry.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*State
	order   []string // insertion order, for stable listings
	ignore  map[string]struct{}

	defaultVerbosity Verbosity
	logger           Logger
}

// NewRegistry creates a registry that ignores the given addresses.
// Entries that are not valid "0xNN" addresses are dropped.
func NewRegistry(ignore []string) *Registry {
	r := &Registry{
		devices:          make(map[string]*State),
		ignore:           make(map[string]struct{}, len(ignore)),
		defaultVerbosity: VerbosityMin,
		logger:           noopLogger{},
	}
	for _, a := range ignore {
		addr, err := i2c.CanonicalAddress(a)
		if err != nil {
			continue
		}
		r.ignore[addr] = struct{}{}
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetDefaultVerbosity sets the verbosity given to devices created on first
// sighting.
func (r *Registry) SetDefaultVerbosity(v Verbosity) {
	r.mu.Lock()
	r.defaultVerbosity = v
	r.mu.Unlock()
}

// IsIgnored reports whether addr is on the ignore list.
func (r *Registry) IsIgnored(addr string) bool {
	canonical, err := i2c.CanonicalAddress(addr)
	if err != nil {
		return false
	}
	_, ok := r.ignore[canonical]
	return ok
}

// IgnoreList returns the ignored addresses, sorted.
func (r *Registry) IgnoreList() []string {
	out := make([]string, 0, len(r.ignore))
	for a := range r.ignore {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Add registers a configured device.
//
// Returns:
//   - ErrInvalidAddress if the address is not "0xNN"
//   - ErrIgnored if the address is on the ignore list
//   - ErrDeviceExists if the address is already registered
func (r *Registry) Add(s *State) error {
	addr, err := i2c.CanonicalAddress(s.Address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	s.Address = addr

	if _, ok := r.ignore[addr]; ok {
		return fmt.Errorf("%w: %s", ErrIgnored, addr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[addr]; ok {
		return fmt.Errorf("%w: %s", ErrDeviceExists, addr)
	}
	r.devices[addr] = s
	r.order = append(r.order, addr)

	r.logger.Info("device registered",
		"address", addr,
		"name", s.Name,
		"pages", s.Map.Len(),
		"verbosity", s.Verbosity.String(),
	)
	return nil
}

// Resolve returns the device at addr, creating a raw-hex fallback device
// the first time an unknown address is seen.
//
// Returns ErrIgnored, without creating anything, for ignored addresses.
func (r *Registry) Resolve(addr string) (*State, error) {
	canonical, err := i2c.CanonicalAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if _, ok := r.ignore[canonical]; ok {
		return nil, fmt.Errorf("%w: %s", ErrIgnored, canonical)
	}

	r.mu.RLock()
	s, ok := r.devices[canonical]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock.
	if s, ok := r.devices[canonical]; ok {
		return s, nil
	}

	s = NewState(canonical, "", nil)
	s.Color = ColorUnknown
	s.Verbosity = r.defaultVerbosity
	s.AutoCreated = true
	r.devices[canonical] = s
	r.order = append(r.order, canonical)

	r.logger.Info("new device on bus", "address", canonical)
	return s, nil
}

// Get returns the device at addr.
func (r *Registry) Get(addr string) (*State, error) {
	canonical, err := i2c.CanonicalAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.devices[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, canonical)
	}
	return s, nil
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Snapshot returns copies of every device in registration order.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	states := make([]*State, 0, len(r.order))
	for _, addr := range r.order {
		states = append(states, r.devices[addr])
	}
	r.mu.RUnlock()

	out := make([]Snapshot, len(states))
	for i, s := range states {
		out[i] = s.Snapshot()
	}
	return out
}

// IsNotFound reports whether err means the device does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDeviceNotFound)
}
