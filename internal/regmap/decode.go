package regmap

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/nerrad567/busdecode/internal/i2c"
)

// Linear-format encoding constants.
const (
	// l16Exponent is the fixed exponent of the L16 format.
	l16Exponent = -12

	// l11MantissaMask extracts the 11-bit mantissa.
	l11MantissaMask = 0x07FF

	// l11MantissaSign is the mantissa's sign bit.
	l11MantissaSign = 0x0400

	// l11ExponentShift moves the exponent into the low bits.
	l11ExponentShift = 11

	// l11ExponentMask extracts the 5-bit exponent.
	l11ExponentMask = 0x1F

	// l11ExponentSign is the exponent's sign bit.
	l11ExponentSign = 0x10

	// regBinaryWidth is the minimum digit count of REG output.
	regBinaryWidth = 16
)

// Decoded is the outcome of decoding one register payload.
type Decoded struct {
	// Value is the decoded text, without units.
	Value string

	// Numeric is set when HasNumeric is true.
	Numeric    float64
	HasNumeric bool

	// PageID is the page requested by a PAGE register.
	PageID string
}

// Decode converts a register payload according to the register's format.
//
// An empty payload decodes to an empty value for every format. A PAGE
// register returns the requested id in PageID and leaves the Value for the
// caller, which knows whether the page exists.
//
// Parameters:
//   - reg: Register definition
//   - payload: Data bytes following the register address
//
// Returns:
//   - Decoded: The decoded value
//   - error: ErrUnsupportedFormat for FormatUnknown; Value still holds the raw hex
func Decode(reg Register, payload []byte) (Decoded, error) {
	if len(payload) == 0 {
		return Decoded{}, nil
	}

	switch reg.Format {
	case FormatLinear:
		v := DecodeLinear(payload, reg.Slope, reg.Offset, reg.ByteOrder)
		return numeric(v), nil
	case FormatL16:
		return numeric(DecodeL16(payload)), nil
	case FormatL11:
		m, e := DecodeL11(payload)
		return Decoded{Value: FormatL11Value(m, e), Numeric: L11Value(m, e), HasNumeric: true}, nil
	case FormatReg:
		return Decoded{Value: DecodeReg(payload)}, nil
	case FormatBin:
		return Decoded{Value: DecodeBin(payload)}, nil
	case FormatHex:
		return Decoded{Value: i2c.HexString(payload)}, nil
	case FormatASCII:
		return Decoded{Value: DecodeASCII(payload)}, nil
	case FormatPage:
		return Decoded{PageID: DecodePageID(payload)}, nil
	case FormatUnknown:
		return Decoded{Value: i2c.HexString(payload)},
			fmt.Errorf("%w: %q", ErrUnsupportedFormat, reg.Tag)
	}

	return Decoded{Value: i2c.HexString(payload)},
		fmt.Errorf("%w: %q", ErrUnsupportedFormat, reg.Tag)
}

func numeric(v float64) Decoded {
	return Decoded{Value: FormatFloat(v), Numeric: v, HasNumeric: true}
}

// DecodeLinear applies value = slope * raw + offset, where raw is the
// payload read as an unsigned integer. LittleEndian reverses the bytes first.
func DecodeLinear(payload []byte, slope, offset float64, order ByteOrder) float64 {
	b := payload
	if order == LittleEndian {
		b = reversed(payload)
	}

	raw, _ := new(big.Float).SetInt(new(big.Int).SetBytes(b)).Float64()
	return slope*raw + offset
}

// DecodeL16 reads the first two bytes as a little-endian word and scales it
// by 2^-12. A single byte is taken as the whole word.
func DecodeL16(payload []byte) float64 {
	return math.Ldexp(float64(littleWord(payload)), l16Exponent)
}

// DecodeL11 splits the first two bytes, read as a little-endian word, into
// a signed 11-bit mantissa and a signed 5-bit exponent.
//
// Returns:
//   - mantissa: -1024..1023
//   - exponent: -16..15
func DecodeL11(payload []byte) (mantissa, exponent int) {
	v := int(littleWord(payload))

	mantissa = v & l11MantissaMask
	if mantissa&l11MantissaSign != 0 {
		mantissa -= l11MantissaMask + 1
	}

	exponent = (v >> l11ExponentShift) & l11ExponentMask
	if exponent&l11ExponentSign != 0 {
		exponent -= l11ExponentMask + 1
	}

	return mantissa, exponent
}

// L11Value returns mantissa * 2^exponent.
func L11Value(mantissa, exponent int) float64 {
	return math.Ldexp(float64(mantissa), exponent)
}

// FormatL11Value renders an L11 value. Non-negative exponents give an exact
// integer, rendered without a fraction; negative exponents render as float.
func FormatL11Value(mantissa, exponent int) string {
	if exponent >= 0 {
		return strconv.FormatInt(int64(mantissa)<<uint(exponent), 10)
	}
	return FormatFloat(L11Value(mantissa, exponent))
}

// DecodeReg renders the payload, read as an unsigned big-endian integer, as
// "0b" followed by at least 16 binary digits.
func DecodeReg(payload []byte) string {
	bits := strings.TrimLeft(DecodeBin(payload), "0")
	if len(bits) < regBinaryWidth {
		bits = strings.Repeat("0", regBinaryWidth-len(bits)) + bits
	}
	return "0b" + bits
}

// DecodeBin renders each byte as eight binary digits, concatenated.
func DecodeBin(payload []byte) string {
	var sb strings.Builder
	sb.Grow(len(payload) * 8)
	for _, b := range payload {
		fmt.Fprintf(&sb, "%08b", b)
	}
	return sb.String()
}

// DecodeASCII returns the payload as UTF-8 text, replacing invalid
// sequences with U+FFFD.
func DecodeASCII(payload []byte) string {
	return strings.ToValidUTF8(string(payload), "�")
}

// DecodePageID returns the first byte as a decimal page id. Page ids in
// map files are decimal even though the wire byte is hex.
func DecodePageID(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	return strconv.Itoa(int(payload[0]))
}

// FormatFloat renders v as the shortest decimal that round-trips, keeping a
// ".0" on integral values (255 renders as "255.0").
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// littleWord reads the first two payload bytes as a little-endian word.
func littleWord(payload []byte) uint16 {
	switch len(payload) {
	case 0:
		return 0
	case 1:
		return uint16(payload[0])
	default:
		return uint16(payload[1])<<8 | uint16(payload[0])
	}
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
