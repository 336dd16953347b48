package regmap

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nerrad567/busdecode/internal/i2c"
)

// tomlRegister is one register entry in a TOML map file. Units and Signed
// accept strings or bare values.
type tomlRegister struct {
	Name   string  `toml:"name"`
	Format string  `toml:"format"`
	Units  any     `toml:"units"`
	Slope  float64 `toml:"slope"`
	Offset float64 `toml:"offset"`
	Signed any     `toml:"signed"`
	Endian string  `toml:"endian"`
}

// ParseTOML decodes a TOML register map. Each page is a table of register
// tables:
//
//	["0"."0x8B"]
//	name = "READ_VOUT"
//	format = "L16"
//	units = "V"
//
// Pages keep the order in which they first appear in the document.
func ParseTOML(data []byte) (*Map, error) {
	var raw map[string]map[string]tomlRegister
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapLoad, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no pages defined", ErrMapLoad)
	}

	var order []string
	seen := make(map[string]bool, len(raw))
	for _, key := range meta.Keys() {
		if len(key) == 0 || seen[key[0]] {
			continue
		}
		seen[key[0]] = true
		order = append(order, key[0])
	}

	pages := make([]*Page, 0, len(order))
	for _, key := range order {
		id := strings.TrimSpace(key)
		if id == "" {
			return nil, fmt.Errorf("%w: empty page id", ErrMapLoad)
		}

		regs := raw[key]
		page := &Page{ID: id, Registers: make(map[string]Register, len(regs))}
		for rawAddr, tr := range regs {
			addr, err := i2c.CanonicalAddress(rawAddr)
			if err != nil {
				return nil, fmt.Errorf("%w: page %q: %w", ErrMapLoad, id, err)
			}
			page.Registers[addr] = tr.register(addr)
		}
		pages = append(pages, page)
	}

	return NewMap(pages...), nil
}

func (tr tomlRegister) register(addr string) Register {
	units := scalarText(tr.Units)
	if units == unitsPlaceholder {
		units = ""
	}

	return Register{
		Address:   addr,
		Name:      tr.Name,
		Format:    ParseFormat(tr.Format),
		Tag:       tr.Format,
		Units:     units,
		Slope:     tr.Slope,
		Offset:    tr.Offset,
		Signed:    strings.EqualFold(scalarText(tr.Signed), "true"),
		ByteOrder: ParseByteOrder(tr.Endian),
	}
}

// scalarText renders a decoded TOML scalar as text; nil is "".
func scalarText(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
