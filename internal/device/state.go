package device

import (
	"sync"
	"time"

	"github.com/nerrad567/busdecode/internal/regmap"
)

// Protocol state defaults.
const (
	// InitialRegister is the register pointer before any write.
	InitialRegister = "0x00"

	// FallbackPage is the page id of a device without a register map.
	FallbackPage = "0x00"
)

// Verbosity controls how much per-device diagnostic logging the resolver
// emits for a device.
type Verbosity int

// Verbosity levels.
const (
	VerbosityNone Verbosity = iota
	VerbosityMin
	VerbosityMax
)

// String returns the level name.
func (v Verbosity) String() string {
	switch v {
	case VerbosityNone:
		return "none"
	case VerbosityMin:
		return "min"
	case VerbosityMax:
		return "max"
	default:
		return "unknown"
	}
}

// Valid reports whether v is a known level.
func (v Verbosity) Valid() bool {
	return v >= VerbosityNone && v <= VerbosityMax
}

// State is one bus device and its protocol state.
//
// Identity fields are fixed after construction. LastRegister and
// CurrentPage are written only by the resolver; the mutex lets readers
// such as the report API take consistent snapshots.
type State struct {
	Address       string
	Name          string
	Description   string
	Color         string
	Verbosity     Verbosity
	CommandLength int

	// Map is nil for devices decoded in raw-hex mode.
	Map *regmap.Map

	// AutoCreated is set for devices first seen on the bus rather than
	// declared in configuration.
	AutoCreated bool

	mu           sync.RWMutex
	lastRegister string
	currentPage  string
	transactions int64
	lastSeen     time.Time
}

// NewState creates a device with its protocol state at the defaults:
// register pointer "0x00" and the map's first page (or FallbackPage).
func NewState(address, name string, m *regmap.Map) *State {
	page := m.DefaultPage()
	if page == "" {
		page = FallbackPage
	}
	return &State{
		Address:      address,
		Name:         name,
		Map:          m,
		Verbosity:    VerbosityMin,
		lastRegister: InitialRegister,
		currentPage:  page,
	}
}

// HasMap reports whether the device decodes through a register map.
func (s *State) HasMap() bool {
	return s.Map != nil && s.Map.Len() > 0
}

// LastRegister returns the latched register pointer.
func (s *State) LastRegister() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRegister
}

// CurrentPage returns the selected page id.
func (s *State) CurrentPage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPage
}

// LatchRegister sets the register pointer.
func (s *State) LatchRegister(reg string) {
	s.mu.Lock()
	s.lastRegister = reg
	s.mu.Unlock()
}

// SwitchPage selects page id if the device's map defines it.
// Returns false and leaves the current page unchanged otherwise.
func (s *State) SwitchPage(id string) bool {
	if !s.Map.HasPage(id) {
		return false
	}
	s.mu.Lock()
	s.currentPage = id
	s.mu.Unlock()
	return true
}

// Lookup finds a register on the current page.
func (s *State) Lookup(reg string) (regmap.Register, bool) {
	return s.Map.Lookup(s.CurrentPage(), reg)
}

// Touch records one transaction addressed to the device.
func (s *State) Touch(at time.Time) {
	s.mu.Lock()
	s.transactions++
	s.lastSeen = at
	s.mu.Unlock()
}

// Snapshot is a read-only copy of a device's identity and protocol state.
type Snapshot struct {
	Address       string    `json:"address"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Color         string    `json:"color"`
	Verbosity     string    `json:"verbosity"`
	CommandLength int       `json:"cmd_length"`
	HasMap        bool      `json:"has_map"`
	Pages         []string  `json:"pages,omitempty"`
	AutoCreated   bool      `json:"auto_created"`
	LastRegister  string    `json:"last_register"`
	CurrentPage   string    `json:"current_page"`
	Transactions  int64     `json:"transactions"`
	LastSeen      time.Time `json:"last_seen,omitzero"`
}

// Snapshot returns a consistent copy of the device.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Address:       s.Address,
		Name:          s.Name,
		Description:   s.Description,
		Color:         s.Color,
		Verbosity:     s.Verbosity.String(),
		CommandLength: s.CommandLength,
		HasMap:        s.HasMap(),
		Pages:         s.Map.PageIDs(),
		AutoCreated:   s.AutoCreated,
		LastRegister:  s.lastRegister,
		CurrentPage:   s.currentPage,
		Transactions:  s.transactions,
		LastSeen:      s.lastSeen,
	}
}
