package regmap

import (
	"errors"
	"math"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		reg         Register
		payload     []byte
		wantValue   string
		wantNumeric float64
		hasNumeric  bool
		wantPage    string
	}{
		{
			name:        "linear big endian identity",
			reg:         Register{Format: FormatLinear, Slope: 1, Offset: 0},
			payload:     []byte{0x00, 0xFF},
			wantValue:   "255.0",
			wantNumeric: 255,
			hasNumeric:  true,
		},
		{
			name:        "linear little endian reverses bytes",
			reg:         Register{Format: FormatLinear, Slope: 1, ByteOrder: LittleEndian},
			payload:     []byte{0x00, 0xFF},
			wantValue:   "65280.0",
			wantNumeric: 65280,
			hasNumeric:  true,
		},
		{
			name:        "linear slope and offset",
			reg:         Register{Format: FormatLinear, Slope: 0.5, Offset: -1},
			payload:     []byte{0x00, 0x0A},
			wantValue:   "4.0",
			wantNumeric: 4,
			hasNumeric:  true,
		},
		{
			name:        "linear signed flag does not change conversion",
			reg:         Register{Format: FormatLinear, Slope: 1, Signed: true},
			payload:     []byte{0xFF, 0xFF},
			wantValue:   "65535.0",
			wantNumeric: 65535,
			hasNumeric:  true,
		},
		{
			name:        "linear zero slope",
			reg:         Register{Format: FormatLinear, Slope: 0, Offset: 0},
			payload:     []byte{0x12},
			wantValue:   "0.0",
			wantNumeric: 0,
			hasNumeric:  true,
		},
		{
			name:        "l16 reordered 0x5B34",
			reg:         Register{Format: FormatL16},
			payload:     []byte{0x34, 0x5B},
			wantValue:   "5.7001953125",
			wantNumeric: 5.7001953125,
			hasNumeric:  true,
		},
		{
			name:        "l16 reordered 0x1133",
			reg:         Register{Format: FormatL16},
			payload:     []byte{0x33, 0x11},
			wantValue:   "1.074951171875",
			wantNumeric: 1.074951171875,
			hasNumeric:  true,
		},
		{
			name:        "l11 reordered 0xDA80",
			reg:         Register{Format: FormatL11},
			payload:     []byte{0x80, 0xDA},
			wantValue:   "20.0",
			wantNumeric: 20,
			hasNumeric:  true,
		},
		{
			name:        "l11 positive exponent renders integer",
			reg:         Register{Format: FormatL11},
			payload:     []byte{0x03, 0x08},
			wantValue:   "6",
			wantNumeric: 6,
			hasNumeric:  true,
		},
		{
			name:        "l11 negative mantissa",
			reg:         Register{Format: FormatL11},
			payload:     []byte{0xFF, 0x07},
			wantValue:   "-1",
			wantNumeric: -1,
			hasNumeric:  true,
		},
		{
			name:      "reg pads to 16 digits",
			reg:       Register{Format: FormatReg},
			payload:   []byte{0x00, 0x05},
			wantValue: "0b0000000000000101",
		},
		{
			name:      "reg zero",
			reg:       Register{Format: FormatReg},
			payload:   []byte{0x00},
			wantValue: "0b0000000000000000",
		},
		{
			name:      "reg wider than 16 bits",
			reg:       Register{Format: FormatReg},
			payload:   []byte{0x01, 0x00, 0x00},
			wantValue: "0b10000000000000000",
		},
		{
			name:      "bin",
			reg:       Register{Format: FormatBin},
			payload:   []byte{0x01, 0x80},
			wantValue: "0000000110000000",
		},
		{
			name:      "hex passthrough",
			reg:       Register{Format: FormatHex},
			payload:   []byte{0x01, 0x80},
			wantValue: "0x0180",
		},
		{
			name:      "ascii",
			reg:       Register{Format: FormatASCII},
			payload:   []byte("VR13"),
			wantValue: "VR13",
		},
		{
			name:     "page id is decimal",
			reg:      Register{Format: FormatPage},
			payload:  []byte{0x0A},
			wantPage: "10",
		},
		{
			name:      "empty payload",
			reg:       Register{Format: FormatL16},
			payload:   nil,
			wantValue: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.reg, tt.payload)
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if got.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", got.Value, tt.wantValue)
			}
			if got.HasNumeric != tt.hasNumeric {
				t.Errorf("HasNumeric = %v, want %v", got.HasNumeric, tt.hasNumeric)
			}
			if tt.hasNumeric && math.Abs(got.Numeric-tt.wantNumeric) > 1e-9 {
				t.Errorf("Numeric = %v, want %v", got.Numeric, tt.wantNumeric)
			}
			if got.PageID != tt.wantPage {
				t.Errorf("PageID = %q, want %q", got.PageID, tt.wantPage)
			}
		})
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	reg := Register{Format: ParseFormat("FLOAT32"), Tag: "FLOAT32"}
	got, err := Decode(reg, []byte{0x01, 0x02})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Decode() error = %v, want ErrUnsupportedFormat", err)
	}
	if got.Value != "0x0102" {
		t.Errorf("Value = %q, want raw hex 0x0102", got.Value)
	}
}

func TestDecodeL11Parts(t *testing.T) {
	m, e := DecodeL11([]byte{0x80, 0xDA})
	if m != 640 || e != -5 {
		t.Errorf("DecodeL11() = (%d, %d), want (640, -5)", m, e)
	}
}

func TestL16ApproximatesDatasheetValues(t *testing.T) {
	tests := []struct {
		payload []byte
		want    float64
	}{
		{payload: []byte{0x34, 0x5B}, want: 5.7},
		{payload: []byte{0x33, 0x11}, want: 1.075},
	}
	for _, tt := range tests {
		if got := DecodeL16(tt.payload); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("DecodeL16(% X) = %v, want ~%v", tt.payload, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		tag  string
		want Format
	}{
		{"LINEAR", FormatLinear},
		{"linear", FormatLinear},
		{"L11", FormatL11},
		{"l16", FormatL16},
		{"REG", FormatReg},
		{"BIN", FormatBin},
		{"HEX", FormatHex},
		{"ASC", FormatASCII},
		{" page ", FormatPage},
		{"", FormatUnknown},
		{"FLOAT32", FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := ParseFormat(tt.tag); got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestFormatNumeric(t *testing.T) {
	for _, f := range []Format{FormatLinear, FormatL11, FormatL16} {
		if !f.Numeric() {
			t.Errorf("%v.Numeric() = false, want true", f)
		}
	}
	for _, f := range []Format{FormatReg, FormatBin, FormatHex, FormatASCII, FormatPage, FormatUnknown} {
		if f.Numeric() {
			t.Errorf("%v.Numeric() = true, want false", f)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{255, "255.0"},
		{0, "0.0"},
		{-3, "-3.0"},
		{5.7001953125, "5.7001953125"},
		{0.25, "0.25"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
