package resolver

import (
	"encoding/json"
	"testing"

	"github.com/nerrad567/busdecode/internal/device"
	"github.com/nerrad567/busdecode/internal/i2c"
	"github.com/nerrad567/busdecode/internal/regmap"
)

// vrMap is a two-page regulator map: page 0 has a PAGE register, a voltage
// readback, a linear setpoint and a status word; page 1 has a current
// readback only.
func vrMap() *regmap.Map {
	return regmap.NewMap(
		&regmap.Page{ID: "0", Registers: map[string]regmap.Register{
			"0x00": {Address: "0x00", Name: "PAGE", Format: regmap.FormatPage, Tag: "PAGE"},
			"0x8B": {Address: "0x8B", Name: "READ_VOUT", Format: regmap.FormatL16, Tag: "L16", Units: "V"},
			"0x21": {Address: "0x21", Name: "VOUT_COMMAND", Format: regmap.FormatLinear, Tag: "LINEAR", Slope: 1, Units: "mV"},
			"0x79": {Address: "0x79", Name: "STATUS_WORD", Format: regmap.FormatReg, Tag: "REG"},
			"0x99": {Address: "0x99", Name: "MFR_ID", Format: regmap.FormatUnknown, Tag: "FLOAT32"},
		}},
		&regmap.Page{ID: "1", Registers: map[string]regmap.Register{
			"0x00": {Address: "0x00", Name: "PAGE", Format: regmap.FormatPage, Tag: "PAGE"},
			"0x8C": {Address: "0x8C", Name: "READ_IOUT", Format: regmap.FormatL11, Tag: "L11", Units: "A"},
		}},
	)
}

func newResolver(t *testing.T, ignore ...string) (*Resolver, *device.Registry) {
	t.Helper()
	reg := device.NewRegistry(ignore)
	s := device.NewState("0x40", "VR13", vrMap())
	s.Color = "BCYAN"
	if err := reg.Add(s); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	return New(reg), reg
}

func resolveOne(t *testing.T, r *Resolver, line string) Result {
	t.Helper()
	results := r.ResolveLine(line)
	if len(results) != 1 {
		t.Fatalf("ResolveLine(%q) returned %d results, want 1", line, len(results))
	}
	return results[0]
}

func TestResolveWriteDecodesRegister(t *testing.T) {
	r, _ := newResolver(t)

	got := resolveOne(t, r, "[0x40W+0x21+0x00+0xFF-")

	if got.Name != "VR13" || got.Address != "0x40" {
		t.Errorf("device = %s(%s)", got.Name, got.Address)
	}
	if got.Register != "0x21" || got.RegisterName != "VOUT_COMMAND" {
		t.Errorf("register = %s(%s)", got.RegisterName, got.Register)
	}
	if got.Value != "255.0mV" {
		t.Errorf("Value = %q, want 255.0mV", got.Value)
	}
	if got.Numeric == nil || *got.Numeric != 255 {
		t.Errorf("Numeric = %v, want 255", got.Numeric)
	}
	if got.Raw != "0x2100FF" {
		t.Errorf("Raw = %q, want full payload 0x2100FF", got.Raw)
	}
	if got.Condition != ConditionNone {
		t.Errorf("Condition = %q, want none", got.Condition)
	}
	if got.TrailingAck != i2c.AckNACK || got.AddressAck != i2c.AckACK {
		t.Errorf("acks = %v/%v", got.AddressAck, got.TrailingAck)
	}
	if got.Page != "0" || got.Format != regmap.FormatLinear {
		t.Errorf("page/format = %q/%v", got.Page, got.Format)
	}
}

func TestResolveReadUsesLatchedRegister(t *testing.T) {
	r, reg := newResolver(t)

	w := resolveOne(t, r, "[0x40W+0x8B+")
	if w.Register != "0x8B" || w.Value != "" {
		t.Errorf("write = %+v, want register 0x8B with empty value", w)
	}

	rd := resolveOne(t, r, "[0x40R+0x34+0x5B-")
	if rd.Register != "0x8B" || rd.RegisterName != "READ_VOUT" {
		t.Errorf("read register = %s(%s), want READ_VOUT(0x8B)", rd.RegisterName, rd.Register)
	}
	if rd.Value != "5.7001953125V" {
		t.Errorf("Value = %q, want 5.7001953125V", rd.Value)
	}

	// A second read with no intervening write stays on the same register.
	again := resolveOne(t, r, "[0x40R+0x33+0x11-")
	if again.Register != "0x8B" || again.Value != "1.074951171875V" {
		t.Errorf("second read = %s %q", again.Register, again.Value)
	}

	s, _ := reg.Get("0x40")
	if s.LastRegister() != "0x8B" {
		t.Errorf("LastRegister() = %q, want 0x8B", s.LastRegister())
	}
}

func TestResolveReadBeforeAnyWrite(t *testing.T) {
	r, _ := newResolver(t)

	got := resolveOne(t, r, "[0x40R+0x01-")
	if got.Register != device.InitialRegister {
		t.Errorf("Register = %q, want %q", got.Register, device.InitialRegister)
	}
	if got.RegisterName != "PAGE" {
		t.Errorf("RegisterName = %q, want PAGE", got.RegisterName)
	}
}

func TestResolvePageSwitching(t *testing.T) {
	r, reg := newResolver(t)

	// READ_IOUT only exists on page 1.
	before := resolveOne(t, r, "[0x40W+0x8C+0x80+0xDA+")
	if before.Condition != ConditionUnresolvedRegister || before.RegisterName != "" {
		t.Errorf("page 0 lookup = %+v, want unresolved register", before)
	}
	if before.Value != "0x80DA" || before.Format != regmap.FormatUnknown {
		t.Errorf("unresolved value/format = %q/%v, want raw 0x80DA/UNKNOWN", before.Value, before.Format)
	}

	sw := resolveOne(t, r, "[0x40W+0x00+0x01+")
	if sw.Value != "New Page Address: 1" || sw.Condition != ConditionNone {
		t.Errorf("page switch = %q (%q)", sw.Value, sw.Condition)
	}
	s, _ := reg.Get("0x40")
	if s.CurrentPage() != "1" {
		t.Fatalf("CurrentPage() = %q, want 1", s.CurrentPage())
	}

	after := resolveOne(t, r, "[0x40W+0x8C+0x80+0xDA+")
	if after.RegisterName != "READ_IOUT" || after.Value != "20.0A" || after.Page != "1" {
		t.Errorf("page 1 lookup = %s %q page %q", after.RegisterName, after.Value, after.Page)
	}

	// READ_VOUT is unresolved on page 1.
	vout := resolveOne(t, r, "[0x40W+0x8B+0x34+0x5B+")
	if vout.Condition != ConditionUnresolvedRegister {
		t.Errorf("READ_VOUT on page 1 condition = %q, want unresolved", vout.Condition)
	}

	miss := resolveOne(t, r, "[0x40W+0x00+0x09+")
	if miss.Value != "No Matching Page Address for: 9" || miss.Condition != ConditionUnresolvedPage {
		t.Errorf("unknown page = %q (%q)", miss.Value, miss.Condition)
	}
	if s.CurrentPage() != "1" {
		t.Errorf("CurrentPage() = %q after unknown page, want 1", s.CurrentPage())
	}
}

func TestResolveIgnored(t *testing.T) {
	r, reg := newResolver(t, "0x68")

	results := r.ResolveLine("[0x68W+0x00+[0x68R+0x12-[0x68W-")
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, res := range results {
		if !res.Ignored || res.Value != IgnoredValue || res.Condition != ConditionIgnored {
			t.Errorf("result = %+v, want ignored", res)
		}
	}
	if _, err := reg.Get("0x68"); !device.IsNotFound(err) {
		t.Errorf("ignored address was registered: %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestResolveFallbackDevice(t *testing.T) {
	r, reg := newResolver(t)

	first := resolveOne(t, r, "[0x50W+0x10+0xAB+")
	second := resolveOne(t, r, "[0x50R+0xCD-")

	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (configured + one fallback)", reg.Len())
	}
	if first.Name != "" || first.Color != device.ColorUnknown {
		t.Errorf("fallback result name/color = %q/%q", first.Name, first.Color)
	}
	if first.Register != "0x10" || first.Value != "0xAB" || first.Condition != ConditionUnresolvedRegister {
		t.Errorf("first = %+v", first)
	}
	if second.Register != "0x10" || second.Value != "0xCD" {
		t.Errorf("second = %+v, want latched 0x10 and raw 0xCD", second)
	}
	if first.Page != device.FallbackPage {
		t.Errorf("Page = %q, want %q", first.Page, device.FallbackPage)
	}
}

func TestResolveNoData(t *testing.T) {
	r, reg := newResolver(t)
	s, _ := reg.Get("0x40")
	s.LatchRegister("0x8B")

	got := resolveOne(t, r, "[0x40W-")
	if got.Register != NoData || got.Value != NoData || got.Condition != ConditionNoData {
		t.Errorf("address-only = %+v", got)
	}
	if got.Raw != "" || got.TrailingAck != i2c.AckNone {
		t.Errorf("raw/trailing = %q/%v", got.Raw, got.TrailingAck)
	}
	if s.LastRegister() != "0x8B" {
		t.Errorf("address-only write changed LastRegister to %q", s.LastRegister())
	}
}

func TestResolveRegisterOnlyWrite(t *testing.T) {
	r, _ := newResolver(t)

	unknown := resolveOne(t, r, "[0x40W+0x55+")
	if unknown.Value != NoData || unknown.Condition != ConditionUnresolvedRegister {
		t.Errorf("unknown register with no data = %+v", unknown)
	}

	known := resolveOne(t, r, "[0x40W+0x8B+")
	if known.Value != "" || known.Units != "" {
		t.Errorf("known register with no data value = %q units = %q, want empty", known.Value, known.Units)
	}
}

func TestResolveUnsupportedFormat(t *testing.T) {
	r, _ := newResolver(t)

	got := resolveOne(t, r, "[0x40W+0x99+0x01+0x02+")
	if got.Value != "0x0102" || got.Condition != ConditionUnsupportedFormat {
		t.Errorf("unsupported = %q (%q)", got.Value, got.Condition)
	}
	if got.RegisterName != "MFR_ID" {
		t.Errorf("RegisterName = %q", got.RegisterName)
	}
}

func TestResolveLowerCaseHexIsCanonical(t *testing.T) {
	r, _ := newResolver(t)

	got := resolveOne(t, r, "[0x40W+0x99+0xab+0xcd+")
	if got.Register != "0x99" || got.RegisterName != "MFR_ID" {
		t.Errorf("register = %s(%s)", got.RegisterName, got.Register)
	}
	if got.Value != "0xABCD" {
		t.Errorf("Value = %q, want upper-case 0xABCD", got.Value)
	}
	if got.Raw != "0x99ABCD" {
		t.Errorf("Raw = %q, want upper-case 0x99ABCD", got.Raw)
	}
}

func TestResolveMalformedContinuesLine(t *testing.T) {
	r, _ := newResolver(t)

	results := r.ResolveLine("[0xQQW+[0x40W+0x79+0x00+0x05+")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[0].Malformed || results[0].Address != "ERROR" || results[0].Condition != ConditionMalformed {
		t.Errorf("first = %+v, want malformed", results[0])
	}
	if results[1].Value != "0b0000000000000101" {
		t.Errorf("second Value = %q", results[1].Value)
	}
}

func TestResolveLineEmpty(t *testing.T) {
	r, _ := newResolver(t)
	if got := r.ResolveLine("no bus traffic"); got != nil {
		t.Errorf("ResolveLine() = %v, want nil", got)
	}
}

func TestResultString(t *testing.T) {
	r, _ := newResolver(t, "0x68")

	got := resolveOne(t, r, "[0x40W+0x21+0x00+0xFF-").String()
	want := "VR13(0x40) W (ACK) VOUT_COMMAND(0x21) 255.0mV (0x2100FF)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	ign := resolveOne(t, r, "[0x68R-").String()
	if ign != "(0x68) R (NACK) (IGNORED)" {
		t.Errorf("ignored String() = %q", ign)
	}

	res := resolveOne(t, r, "[0x40W+0x21+0x00+0xFF-")
	if got, colored := res.Render(true), device.ColorStyle("BCYAN").Render(want); got != colored {
		t.Errorf("Render(true) = %q, want %q", got, colored)
	}
	if got := res.Render(false); got != want {
		t.Errorf("Render(false) = %q, want %q", got, want)
	}
}

func TestResultJSON(t *testing.T) {
	r, _ := newResolver(t)
	res := resolveOne(t, r, "[0x40W+0x21+0x00+0xFF-")

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["direction"] != "W" || m["format"] != "LINEAR" || m["address_ack"] != "ACK" {
		t.Errorf("JSON = %s", data)
	}
	if m["numeric"] != 255.0 {
		t.Errorf("numeric = %v", m["numeric"])
	}
}

func TestTally(t *testing.T) {
	r, _ := newResolver(t, "0x68")
	var tally Tally
	tally.Add(r.ResolveLine("[0x68W+0x00+[0x40W-"))
	tally.Add(r.ResolveLine("[0x40W+0x21+0x00+0x01+"))

	if tally.Lines != 2 || tally.Results != 3 {
		t.Errorf("tally = %+v", tally)
	}
	if tally.Conditions[ConditionIgnored] != 1 || tally.Conditions[ConditionNoData] != 1 {
		t.Errorf("conditions = %v", tally.Conditions)
	}
}
