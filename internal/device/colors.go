package device

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console colour tags accepted in device configuration.
const (
	ColorDefault = "WHITE"
	ColorUnknown = "RED" // devices first seen on the bus
)

// colorIndex maps each tag to its 16-colour ANSI index.
var colorIndex = map[string]lipgloss.Color{
	"HLINE":    "7",
	"RED":      "1",
	"GREEN":    "2",
	"YELLOW":   "3",
	"BLUE":     "4",
	"MAGENTA":  "5",
	"CYAN":     "6",
	"WHITE":    "7",
	"BRED":     "9",
	"BGREEN":   "10",
	"BYELLOW":  "11",
	"BBLUE":    "12",
	"BMAGENTA": "13",
	"BCYAN":    "14",
	"BWHITE":   "15",
}

// IsColor reports whether tag names a known colour, ignoring case.
func IsColor(tag string) bool {
	_, ok := colorIndex[strings.ToUpper(tag)]
	return ok
}

// NormalizeColor upper-cases a known tag and maps anything else to
// ColorDefault. The second result is false when the tag was replaced.
func NormalizeColor(tag string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(tag))
	if _, ok := colorIndex[upper]; ok {
		return upper, true
	}
	return ColorDefault, false
}

// ColorStyle returns the console style for a colour tag. Unknown tags get
// the default colour.
func ColorStyle(tag string) lipgloss.Style {
	c, ok := colorIndex[strings.ToUpper(tag)]
	if !ok {
		c = colorIndex[ColorDefault]
	}
	return lipgloss.NewStyle().Foreground(c)
}

// Colorize renders s in tag's colour. Colour is dropped when standard
// output is not a terminal.
func Colorize(tag, s string) string {
	return ColorStyle(tag).Render(s)
}
