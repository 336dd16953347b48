// Package i2c tokenizes logic-analyzer text captures of two-wire serial bus
// traffic into transactions.
//
// A capture line holds zero or more transactions in the analyzer's compact
// notation:
//
//	[0x40W+0x8B+0x34-0x5B+
//	 │   ││ │   │
//	 │   ││ │   └─ ack of the data byte (+ ACK, - NACK)
//	 │   ││ └───── data byte
//	 │   │└─────── address-phase ack
//	 │   └──────── direction (R or W)
//	 └──────────── bus address
//
// Tokenizing is two-pass. The first pass matches each transaction span; the
// second walks every data byte inside the span. A single regular expression
// with a repeated capture group only keeps the last repetition, so the data
// bytes must be collected explicitly.
//
// # Usage
//
//	for _, tx := range i2c.Tokenize(line) {
//	    if tx.Malformed {
//	        continue
//	    }
//	    fmt.Println(tx.Address, tx.Direction, tx.PayloadHex())
//	}
package i2c
