// Package regmap holds per-device register maps and the format decoders that
// turn raw register payloads into typed, unit-annotated values.
//
// A register map is organised by page. Page ids are decimal strings ("0",
// "1", ...) and register keys are canonical "0xNN" strings:
//
//	"0":
//	  "0x8B":
//	    name: READ_VOUT
//	    format: L16
//	    units: V
//	"1":
//	  "0x8B":
//	    name: READ_VOUT_PHASE2
//	    format: L16
//	    units: V
//
// Maps are YAML or JSON; files ending in .toml use TOML tables keyed
// ["page"."register"]. Page order follows the file, and the first page is
// the default page a device starts on.
//
// # Formats
//
//   - LINEAR: slope * unsigned integer + offset
//   - L16: little-endian word * 2^-12
//   - L11: 5-bit signed exponent, 11-bit signed mantissa
//   - REG: 16-digit binary text
//   - BIN: each byte as 8 binary digits
//   - HEX: payload hex unchanged
//   - ASC: payload as text
//   - PAGE: page select; first byte as a decimal page id
//
// Decode is pure. Applying a page switch is the caller's job.
package regmap
