package regmap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/busdecode/internal/i2c"
)

// unitsPlaceholder marks a register without units in map files.
const unitsPlaceholder = "NaN"

// registerFile is one register entry as written in a map file.
// Units and Signed are read as raw nodes so both quoted and bare
// scalars ("True", true, "NaN") are accepted.
type registerFile struct {
	Name   string    `yaml:"name"`
	Format string    `yaml:"format"`
	Units  yaml.Node `yaml:"units"`
	Slope  float64   `yaml:"slope"`
	Offset float64   `yaml:"offset"`
	Signed yaml.Node `yaml:"signed"`
	Endian string    `yaml:"endian"`
}

// LoadFile reads a register map from a YAML, JSON or TOML file. Files
// ending in .toml are parsed as TOML; anything else as YAML.
//
// Parameters:
//   - path: Path to the map file
//
// Returns:
//   - *Map: Pages in file order
//   - error: ErrMapLoad wrapping the cause if the file is missing or malformed
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrMapLoad, path, err)
	}

	parse := Parse
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		parse = ParseTOML
	}

	m, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a register map document. JSON documents are accepted as
// the YAML subset they are.
func Parse(data []byte) (*Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapLoad, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMapLoad)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must map page ids to registers", ErrMapLoad)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: no pages defined", ErrMapLoad)
	}

	// Mapping node content alternates key, value in document order.
	pages := make([]*Page, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		page, err := parsePage(root.Content[i], root.Content[i+1])
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	return NewMap(pages...), nil
}

func parsePage(key, value *yaml.Node) (*Page, error) {
	id := strings.TrimSpace(key.Value)
	if id == "" {
		return nil, fmt.Errorf("%w: empty page id at line %d", ErrMapLoad, key.Line)
	}
	if value.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: page %q must map register addresses to definitions", ErrMapLoad, id)
	}

	page := &Page{ID: id, Registers: make(map[string]Register, len(value.Content)/2)}
	for i := 0; i+1 < len(value.Content); i += 2 {
		addr, err := i2c.CanonicalAddress(value.Content[i].Value)
		if err != nil {
			return nil, fmt.Errorf("%w: page %q line %d: %w", ErrMapLoad, id, value.Content[i].Line, err)
		}

		var rf registerFile
		if err := value.Content[i+1].Decode(&rf); err != nil {
			return nil, fmt.Errorf("%w: page %q register %s: %w", ErrMapLoad, id, addr, err)
		}
		page.Registers[addr] = rf.register(addr)
	}
	return page, nil
}

func (rf registerFile) register(addr string) Register {
	units := rf.Units.Value
	if units == unitsPlaceholder {
		units = ""
	}

	return Register{
		Address:   addr,
		Name:      rf.Name,
		Format:    ParseFormat(rf.Format),
		Tag:       rf.Format,
		Units:     units,
		Slope:     rf.Slope,
		Offset:    rf.Offset,
		Signed:    strings.EqualFold(rf.Signed.Value, "true"),
		ByteOrder: ParseByteOrder(rf.Endian),
	}
}
