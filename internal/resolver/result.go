package resolver

import (
	"fmt"

	"github.com/nerrad567/busdecode/internal/device"
	"github.com/nerrad567/busdecode/internal/i2c"
	"github.com/nerrad567/busdecode/internal/regmap"
)

// Placeholder values used in results.
const (
	// NoData marks a transaction or register without data bytes.
	NoData = "NO DATA"

	// IgnoredValue is the value of every result for an ignored address.
	IgnoredValue = "(IGNORED)"
)

// Condition is a machine-readable reason a result is degraded.
// The zero value means the transaction decoded cleanly.
type Condition string

// Result conditions.
const (
	ConditionNone               Condition = ""
	ConditionMalformed          Condition = "malformed_transaction"
	ConditionIgnored            Condition = "ignored"
	ConditionNoData             Condition = "no_data"
	ConditionUnresolvedRegister Condition = "unresolved_register"
	ConditionUnresolvedPage     Condition = "unresolved_page"
	ConditionUnsupportedFormat  Condition = "unsupported_format"
)

// Result is one decoded transaction.
type Result struct {
	Address     string        `json:"address"`
	Name        string        `json:"name"`
	Direction   i2c.Direction `json:"direction"`
	AddressAck  i2c.Ack       `json:"address_ack"`
	TrailingAck i2c.Ack       `json:"trailing_ack"`

	Register     string        `json:"register"`
	RegisterName string        `json:"register_name"`
	Page         string        `json:"page,omitempty"`
	Format       regmap.Format `json:"format"`

	// Value is the decoded text with the unit suffix appended.
	Value   string   `json:"value"`
	Units   string   `json:"units,omitempty"`
	Numeric *float64 `json:"numeric,omitempty"`

	// Raw is the full transaction payload in hex, register byte included.
	Raw  string `json:"raw"`
	Line string `json:"line"`

	Color     string    `json:"color,omitempty"`
	Ignored   bool      `json:"ignored,omitempty"`
	Malformed bool      `json:"malformed,omitempty"`
	Condition Condition `json:"condition,omitempty"`
}

// Degraded reports whether the result carries a condition other than
// ignored.
func (r Result) Degraded() bool {
	return r.Condition != ConditionNone && r.Condition != ConditionIgnored
}

// String renders the result as one console line:
//
//	name(addr) dir (ack) regname(reg) value (raw)
func (r Result) String() string {
	switch {
	case r.Malformed:
		return fmt.Sprintf("(%s) malformed transaction: %s", i2c.MalformedAddress, r.Raw)
	case r.Ignored:
		return fmt.Sprintf("(%s) %s (%s) %s", r.Address, r.Direction, r.AddressAck, IgnoredValue)
	default:
		return fmt.Sprintf("%s(%s) %s (%s) %s(%s) %s (%s)",
			r.Name, r.Address, r.Direction, r.AddressAck,
			r.RegisterName, r.Register, r.Value, r.Raw)
	}
}

// Render returns String in the device's console colour when color
// is set.
func (r Result) Render(color bool) string {
	s := r.String()
	if !color {
		return s
	}
	tag := r.Color
	if tag == "" {
		tag = device.ColorDefault
	}
	return device.Colorize(tag, s)
}

// Tally counts results by condition across a run.
type Tally struct {
	Lines      int
	Results    int
	Conditions map[Condition]int
}

// Add records one processed line and its results.
func (t *Tally) Add(results []Result) {
	if t.Conditions == nil {
		t.Conditions = make(map[Condition]int)
	}
	t.Lines++
	t.Results += len(results)
	for _, r := range results {
		if r.Condition != ConditionNone {
			t.Conditions[r.Condition]++
		}
	}
}
