package regmap

import "strings"

// Format is a register value encoding.
type Format int

// Register encodings. FormatUnknown covers every unrecognised tag.
const (
	FormatUnknown Format = iota
	FormatLinear
	FormatL11
	FormatL16
	FormatReg
	FormatBin
	FormatHex
	FormatASCII
	FormatPage
)

var formatTags = map[Format]string{
	FormatUnknown: "UNKNOWN",
	FormatLinear:  "LINEAR",
	FormatL11:     "L11",
	FormatL16:     "L16",
	FormatReg:     "REG",
	FormatBin:     "BIN",
	FormatHex:     "HEX",
	FormatASCII:   "ASC",
	FormatPage:    "PAGE",
}

// ParseFormat maps a format tag to a Format, ignoring case.
// Unrecognised tags map to FormatUnknown.
func ParseFormat(tag string) Format {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	for f, t := range formatTags {
		if t == tag {
			return f
		}
	}
	return FormatUnknown
}

// String returns the format's tag.
func (f Format) String() string {
	if t, ok := formatTags[f]; ok {
		return t
	}
	return formatTags[FormatUnknown]
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Numeric reports whether the format decodes to a number.
func (f Format) Numeric() bool {
	switch f {
	case FormatLinear, FormatL11, FormatL16:
		return true
	default:
		return false
	}
}

// ByteOrder is the byte order of a LINEAR payload.
type ByteOrder int

// Byte orders.
const (
	BigEndian ByteOrder = iota
	LittleEndian
)

// ParseByteOrder maps "little" (any case) to LittleEndian, anything else
// to BigEndian.
func ParseByteOrder(s string) ByteOrder {
	if strings.EqualFold(strings.TrimSpace(s), "little") {
		return LittleEndian
	}
	return BigEndian
}

// String returns "big" or "little".
func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little"
	}
	return "big"
}

// Register describes one register on one page.
type Register struct {
	// Address is the canonical "0xNN" register address.
	Address string

	Name   string
	Format Format

	// Tag is the format tag as written in the map file.
	Tag string

	// Units is appended to decoded values. Empty when the file had none
	// or the "NaN" placeholder.
	Units string

	// LINEAR parameters.
	Slope     float64
	Offset    float64
	Signed    bool // carried from the map file; conversion is always unsigned
	ByteOrder ByteOrder
}

// Page is a set of registers selected by a PAGE write.
type Page struct {
	ID        string
	Registers map[string]Register
}

// Map is an ordered set of pages.
//
// A nil *Map is valid and behaves as an empty map.
type Map struct {
	pages []*Page
	index map[string]*Page
}

// NewMap builds a map from pages in order. A later page with a duplicate id
// replaces the earlier one in place.
func NewMap(pages ...*Page) *Map {
	m := &Map{index: make(map[string]*Page, len(pages))}
	for _, p := range pages {
		if p.Registers == nil {
			p.Registers = make(map[string]Register)
		}
		if existing, ok := m.index[p.ID]; ok {
			*existing = *p
			continue
		}
		m.pages = append(m.pages, p)
		m.index[p.ID] = p
	}
	return m
}

// DefaultPage returns the id of the first page, or "" for an empty map.
func (m *Map) DefaultPage() string {
	if m == nil || len(m.pages) == 0 {
		return ""
	}
	return m.pages[0].ID
}

// HasPage reports whether the map defines page id.
func (m *Map) HasPage(id string) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[id]
	return ok
}

// Page returns the page with the given id.
func (m *Map) Page(id string) (*Page, bool) {
	if m == nil {
		return nil, false
	}
	p, ok := m.index[id]
	return p, ok
}

// PageIDs returns page ids in file order.
func (m *Map) PageIDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, len(m.pages))
	for i, p := range m.pages {
		ids[i] = p.ID
	}
	return ids
}

// Lookup returns the register defined at reg on page.
func (m *Map) Lookup(page, reg string) (Register, bool) {
	p, ok := m.Page(page)
	if !ok {
		return Register{}, false
	}
	r, ok := p.Registers[reg]
	return r, ok
}

// Len returns the number of pages.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pages)
}
