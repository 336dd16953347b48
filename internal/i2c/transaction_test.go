package i2c

import (
	"errors"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantCount   int
		wantAddr    string
		wantDir     Direction
		wantAddrAck Ack
		wantPayload string
		wantTrail   Ack
	}{
		{
			name:        "write with register and two data bytes",
			line:        "[0x40W+0x8B+0x34+0x5B-",
			wantCount:   1,
			wantAddr:    "0x40",
			wantDir:     Write,
			wantAddrAck: AckACK,
			wantPayload: "0x8B345B",
			wantTrail:   AckNACK,
		},
		{
			name:        "read",
			line:        "[0x40R+0x34+0x5B-",
			wantCount:   1,
			wantAddr:    "0x40",
			wantDir:     Read,
			wantAddrAck: AckACK,
			wantPayload: "0x345B",
			wantTrail:   AckNACK,
		},
		{
			name:        "address only with nack",
			line:        "[0x51W-",
			wantCount:   1,
			wantAddr:    "0x51",
			wantDir:     Write,
			wantAddrAck: AckNACK,
			wantPayload: "",
			wantTrail:   AckNone,
		},
		{
			name:        "whitespace stripped before matching",
			line:        "  [0x40 W+ 0x8B+\t0x01+ \r\n",
			wantCount:   1,
			wantAddr:    "0x40",
			wantDir:     Write,
			wantAddrAck: AckACK,
			wantPayload: "0x8B01",
			wantTrail:   AckACK,
		},
		{
			name:        "lower case hex canonicalised",
			line:        "[0x4aW+0xab+",
			wantCount:   1,
			wantAddr:    "0x4A",
			wantDir:     Write,
			wantAddrAck: AckACK,
			wantPayload: "0xAB",
			wantTrail:   AckACK,
		},
		{
			name:        "leading text ignored",
			line:        "12.5ms: [0x40W+0x00+",
			wantCount:   1,
			wantAddr:    "0x40",
			wantDir:     Write,
			wantAddrAck: AckACK,
			wantPayload: "0x00",
			wantTrail:   AckACK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.line)
			if len(got) != tt.wantCount {
				t.Fatalf("Tokenize() returned %d transactions, want %d", len(got), tt.wantCount)
			}
			tx := got[0]
			if tx.Malformed {
				t.Fatalf("Tokenize() marked %q malformed", tt.line)
			}
			if tx.Address != tt.wantAddr {
				t.Errorf("Address = %q, want %q", tx.Address, tt.wantAddr)
			}
			if tx.Direction != tt.wantDir {
				t.Errorf("Direction = %v, want %v", tx.Direction, tt.wantDir)
			}
			if tx.AddressAck != tt.wantAddrAck {
				t.Errorf("AddressAck = %v, want %v", tx.AddressAck, tt.wantAddrAck)
			}
			if got := tx.PayloadHex(); got != tt.wantPayload {
				t.Errorf("PayloadHex() = %q, want %q", got, tt.wantPayload)
			}
			if got := tx.TrailingAck(); got != tt.wantTrail {
				t.Errorf("TrailingAck() = %v, want %v", got, tt.wantTrail)
			}
		})
	}
}

func TestTokenizeCollectsEveryDataByte(t *testing.T) {
	line := "[0x40W+0x01+0x02+0x03+0x04+0x05+0x06+0x07-"
	got := Tokenize(line)
	if len(got) != 1 {
		t.Fatalf("Tokenize() returned %d transactions, want 1", len(got))
	}

	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	if !reflect.DeepEqual(got[0].Payload(), want) {
		t.Errorf("Payload() = %v, want %v", got[0].Payload(), want)
	}
	if got[0].Bytes[6].Ack != AckNACK {
		t.Errorf("last byte ack = %v, want NACK", got[0].Bytes[6].Ack)
	}
	for i := 0; i < 6; i++ {
		if got[0].Bytes[i].Ack != AckACK {
			t.Errorf("byte %d ack = %v, want ACK", i, got[0].Bytes[i].Ack)
		}
	}
}

func TestTokenizeMultipleTransactions(t *testing.T) {
	line := "[0x40W+0x8B+[0x40R+0x34+0x5B-"
	got := Tokenize(line)
	if len(got) != 2 {
		t.Fatalf("Tokenize() returned %d transactions, want 2", len(got))
	}

	if got[0].Direction != Write || got[0].PayloadHex() != "0x8B" {
		t.Errorf("first = %v, want write 0x8B", got[0])
	}
	if got[1].Direction != Read || got[1].PayloadHex() != "0x345B" {
		t.Errorf("second = %v, want read 0x345B", got[1])
	}
	for _, tx := range got {
		if tx.Line != line {
			t.Errorf("Line = %q, want %q", tx.Line, line)
		}
	}
}

func TestTokenizeMalformed(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantCount  int
		malformedN int
	}{
		{name: "bad address", line: "[0xZZW+", wantCount: 1, malformedN: 1},
		{name: "missing direction", line: "[0x40+0x01+", wantCount: 1, malformedN: 1},
		{name: "bare bracket", line: "[", wantCount: 1, malformedN: 1},
		{name: "malformed then valid", line: "[garbage[0x40W+0x01+", wantCount: 2, malformedN: 1},
		{name: "no tokens", line: "no transactions here", wantCount: 0, malformedN: 0},
		{name: "empty line", line: "", wantCount: 0, malformedN: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.line)
			if len(got) != tt.wantCount {
				t.Fatalf("Tokenize() returned %d transactions, want %d", len(got), tt.wantCount)
			}
			n := 0
			for _, tx := range got {
				if tx.Malformed {
					n++
					if tx.Address != MalformedAddress {
						t.Errorf("malformed Address = %q, want %q", tx.Address, MalformedAddress)
					}
					if tx.AddressAck != AckNone {
						t.Errorf("malformed AddressAck = %v, want none", tx.AddressAck)
					}
				}
			}
			if n != tt.malformedN {
				t.Errorf("malformed count = %d, want %d", n, tt.malformedN)
			}
		})
	}
}

func TestTokenizeTruncatedDataStopsSpan(t *testing.T) {
	// A truncated trailing byte is not part of the span.
	got := Tokenize("[0x40W+0x01+0x0")
	if len(got) != 1 || got[0].Malformed {
		t.Fatalf("Tokenize() = %v, want one valid transaction", got)
	}
	if got[0].PayloadHex() != "0x01" {
		t.Errorf("PayloadHex() = %q, want 0x01", got[0].PayloadHex())
	}
	if got[0].Source != "[0x40W+0x01+" {
		t.Errorf("Source = %q, want matched span only", got[0].Source)
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	line := "[0x40W+0x8B+ [0x40R+0x34+0x5B- [0xZZ [0x68W+0x00+"
	first := Tokenize(line)
	second := Tokenize(line)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Tokenize() not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestCanonicalAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0x40", want: "0x40"},
		{in: "0x4a", want: "0x4A"},
		{in: "0X4A", want: "0x4A"},
		{in: " 0x4A ", want: "0x4A"},
		{in: "0x8", want: "0x08"},
		{in: "0x", wantErr: true},
		{in: "40", wantErr: true},
		{in: "0x123", wantErr: true},
		{in: "0xGG", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonicalAddress(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Errorf("CanonicalAddress(%q) error = %v, want ErrInvalidAddress", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CanonicalAddress(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("CanonicalAddress(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHexString(t *testing.T) {
	if got := HexString(nil); got != "" {
		t.Errorf("HexString(nil) = %q, want empty", got)
	}
	if got := HexString([]byte{0x0a, 0xff}); got != "0x0AFF" {
		t.Errorf("HexString() = %q, want 0x0AFF", got)
	}
	if got := FormatByte(0x0b); got != "0x0B" {
		t.Errorf("FormatByte() = %q, want 0x0B", got)
	}
}

func TestDirectionAndAckStrings(t *testing.T) {
	if Write.String() != "W" || Read.String() != "R" {
		t.Errorf("Direction strings = %q/%q, want W/R", Write, Read)
	}
	if AckACK.String() != "ACK" || AckNACK.String() != "NACK" || AckNone.String() != "" {
		t.Errorf("Ack strings = %q/%q/%q", AckACK, AckNACK, AckNone)
	}
}
