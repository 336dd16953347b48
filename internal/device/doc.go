// Package device tracks the bus devices seen in a capture and their
// per-device protocol state.
//
// Each device owns two pieces of state that give meaning to later
// transactions:
//
//   - LastRegister: the register pointer latched by the most recent write.
//     A read with no register byte continues at this register.
//   - CurrentPage: the page selected by the most recent successful PAGE
//     write. Register lookups are scoped to it.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                         Registry                              │
//	│                                                               │
//	│  ignore set ──▶ Resolve(addr) ──▶ known? ──▶ *State           │
//	│                      │                                        │
//	│                      └── unknown ──▶ fallback *State (no map) │
//	└──────────────────────────────────────────────────────────────┘
//	                       │
//	                       ▼
//	             resolver (single writer)
//
// Devices are registered once, from configuration or on first sighting,
// and are never evicted. Ignored addresses never get an entry.
//
// # Usage
//
//	reg := device.NewRegistry([]string{"0x68"})
//	reg.SetLogger(logger)
//	if err := device.LoadDefinitions(reg, defs, "devices"); err != nil {
//	    return err
//	}
//
//	state, err := reg.Resolve("0x40")
//	if errors.Is(err, device.ErrIgnored) {
//	    // skip
//	}
package device
