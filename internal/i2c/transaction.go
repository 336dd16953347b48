package i2c

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MalformedAddress is the address reported for a token that does not match
// the transaction grammar.
const MalformedAddress = "ERROR"

// Tokenizer patterns.
var (
	// transactionPattern matches one transaction at the start of a candidate.
	// The repeated data group is deliberately non-capturing: the data bytes
	// are collected by dataBytePattern in a second pass.
	transactionPattern = regexp.MustCompile(`^\[(0x[0-9A-Fa-f]{2})([WR])([+-])(?:0x[0-9A-Fa-f]{2}[+-])*`)

	// dataBytePattern matches one data byte and its ack inside a span.
	dataBytePattern = regexp.MustCompile(`0x([0-9A-Fa-f]{2})([+-])`)
)

// Direction is the transfer direction encoded in the address phase.
type Direction int

// Transfer directions.
const (
	Write Direction = iota
	Read
)

// String returns "W" or "R".
func (d Direction) String() string {
	if d == Read {
		return "R"
	}
	return "W"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Ack is the acknowledge bit that follows an address or data byte.
type Ack int

// Acknowledge states. AckNone is used where no byte was transferred.
const (
	AckNone Ack = iota
	AckACK
	AckNACK
)

// String returns "ACK", "NACK" or "" for AckNone.
func (a Ack) String() string {
	switch a {
	case AckACK:
		return "ACK"
	case AckNACK:
		return "NACK"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Ack) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func parseAck(symbol string) Ack {
	if symbol == "+" {
		return AckACK
	}
	return AckNACK
}

// DataByte is one byte transferred after the address phase.
type DataByte struct {
	Value byte
	Ack   Ack
}

// Transaction is a single addressed transfer extracted from a capture line.
type Transaction struct {
	// Address is the bus address in canonical "0xNN" form,
	// or MalformedAddress when Malformed is set.
	Address string

	Direction  Direction
	AddressAck Ack

	// Bytes holds every data byte in wire order.
	Bytes []DataByte

	// Source is the matched span (or the rejected candidate when malformed).
	Source string

	// Line is the whitespace-stripped line the transaction came from.
	Line string

	Malformed bool
}

// Payload returns the data byte values in wire order.
func (t Transaction) Payload() []byte {
	if len(t.Bytes) == 0 {
		return nil
	}
	out := make([]byte, len(t.Bytes))
	for i, b := range t.Bytes {
		out[i] = b.Value
	}
	return out
}

// PayloadHex returns the combined payload as "0x" followed by every data
// byte's two hex digits, or "" for an address-only transaction.
func (t Transaction) PayloadHex() string {
	return HexString(t.Payload())
}

// AddressOnly reports whether no data byte followed the address phase.
func (t Transaction) AddressOnly() bool {
	return len(t.Bytes) == 0
}

// TrailingAck returns the ack of the last data byte, or AckNone when the
// transaction is address-only.
func (t Transaction) TrailingAck() Ack {
	if len(t.Bytes) == 0 {
		return AckNone
	}
	return t.Bytes[len(t.Bytes)-1].Ack
}

// String returns a compact representation for logging.
func (t Transaction) String() string {
	if t.Malformed {
		return fmt.Sprintf("Transaction{MALFORMED:%q}", t.Source)
	}
	return fmt.Sprintf("Transaction{Addr:%s, Dir:%s, Ack:%s, Data:%s}", t.Address, t.Direction, t.AddressAck, t.PayloadHex())
}

// StripLine removes all whitespace from a capture line.
func StripLine(line string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)
}

// Tokenize extracts every transaction from a capture line, left to right.
//
// Each '[' begins a candidate token. A candidate that matches the grammar
// becomes a Transaction; one that does not is returned with Malformed set so
// the caller can report it without abandoning the rest of the line. Text
// before the first '[' is ignored.
//
// Tokenize is pure: the same line always yields an identical slice.
func Tokenize(line string) []Transaction {
	stripped := StripLine(line)

	var out []Transaction
	for _, candidate := range splitCandidates(stripped) {
		out = append(out, parseCandidate(candidate, stripped))
	}
	return out
}

// splitCandidates splits s into substrings that each start with '['.
func splitCandidates(s string) []string {
	var candidates []string
	start := strings.IndexByte(s, '[')
	for start >= 0 {
		rest := s[start:]
		next := strings.IndexByte(rest[1:], '[')
		if next < 0 {
			candidates = append(candidates, rest)
			break
		}
		candidates = append(candidates, rest[:next+1])
		start += next + 1
	}
	return candidates
}

// parseCandidate runs both tokenizer passes over one candidate.
func parseCandidate(candidate, line string) Transaction {
	m := transactionPattern.FindStringSubmatchIndex(candidate)
	if m == nil {
		return Transaction{
			Address:    MalformedAddress,
			AddressAck: AckNone,
			Source:     candidate,
			Line:       line,
			Malformed:  true,
		}
	}

	span := candidate[m[0]:m[1]]
	headerEnd := m[7] - m[0] // end of the address-ack group

	tx := Transaction{
		Address:    canonicalHex(candidate[m[2]:m[3]]),
		AddressAck: parseAck(candidate[m[6]:m[7]]),
		Source:     span,
		Line:       line,
	}
	if candidate[m[4]:m[5]] == "R" {
		tx.Direction = Read
	}

	// Second pass: every data byte inside the span, in encounter order.
	for _, dm := range dataBytePattern.FindAllStringSubmatch(span[headerEnd:], -1) {
		raw, err := hex.DecodeString(dm[1])
		if err != nil || len(raw) != 1 {
			continue // unreachable: pattern guarantees two hex digits
		}
		tx.Bytes = append(tx.Bytes, DataByte{Value: raw[0], Ack: parseAck(dm[2])})
	}

	return tx
}

// HexString renders b as "0x" followed by upper-case hex digits.
// An empty slice renders as "".
func HexString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}

// CanonicalAddress normalises an address or register string to "0xNN".
//
// Accepts one or two hex digits with a "0x" or "0X" prefix, surrounding
// whitespace allowed. "0x4a", "0X4A" and " 0x4A " all become "0x4A".
func CanonicalAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || len(s) > 4 || (s[:2] != "0x" && s[:2] != "0X") {
		return "", fmt.Errorf("%w: expected 0xNN, got %q", ErrInvalidAddress, s)
	}
	digits := s[2:]
	if len(digits) == 1 {
		digits = "0" + digits
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", fmt.Errorf("%w: expected 0xNN, got %q", ErrInvalidAddress, s)
	}
	return "0x" + strings.ToUpper(digits), nil
}

// canonicalHex upper-cases the digits of an already validated "0xNN" string.
func canonicalHex(s string) string {
	return "0x" + strings.ToUpper(s[2:])
}

// FormatByte renders a single byte as "0xNN".
func FormatByte(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}
