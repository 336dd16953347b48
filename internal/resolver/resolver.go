// Package resolver turns tokenized bus transactions into decoded register
// results, applying each device's register pointer and page state.
//
// The resolver is the single writer of device protocol state. Lines must be
// fed in capture order: a read without a register byte continues at the
// register latched by the device's most recent write, and register lookups
// depend on the page selected by earlier PAGE writes.
//
// Degraded transactions never produce errors. They yield a Result whose
// Condition and Value explain what went wrong, and processing continues.
package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/busdecode/internal/device"
	"github.com/nerrad567/busdecode/internal/i2c"
	"github.com/nerrad567/busdecode/internal/regmap"
)

// Logger defines the logging interface used by the Resolver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Resolver decodes transactions against a device registry.
//
// Not safe for concurrent use: per-device state is only meaningful when
// transactions are applied in order.
type Resolver struct {
	registry *device.Registry
	logger   Logger
	now      func() time.Time
}

// New creates a resolver over registry.
func New(registry *device.Registry) *Resolver {
	return &Resolver{
		registry: registry,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for diagnostic records. Per-device verbosity
// decides which records reach it.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// ResolveLine tokenizes a capture line and resolves every transaction in
// it, in order. A line without transactions yields nil.
func (r *Resolver) ResolveLine(line string) []Result {
	txs := i2c.Tokenize(line)
	if len(txs) == 0 {
		return nil
	}

	results := make([]Result, 0, len(txs))
	for _, tx := range txs {
		results = append(results, r.Resolve(tx))
	}
	return results
}

// Resolve decodes one transaction.
//
// Writes latch their first data byte as the device's register pointer;
// reads decode at the latched register. The register is looked up on the
// device's current page and its payload decoded by the register's format.
// PAGE registers switch the current page when the requested page exists.
func (r *Resolver) Resolve(tx i2c.Transaction) Result {
	if tx.Malformed {
		r.logger.Warn("malformed transaction", "token", tx.Source, "line", tx.Line)
		return Result{
			Address:   i2c.MalformedAddress,
			Raw:       tx.Source,
			Line:      tx.Line,
			Malformed: true,
			Condition: ConditionMalformed,
		}
	}

	res := Result{
		Address:     tx.Address,
		Direction:   tx.Direction,
		AddressAck:  tx.AddressAck,
		TrailingAck: tx.TrailingAck(),
		Raw:         tx.PayloadHex(),
		Line:        tx.Line,
	}

	state, err := r.registry.Resolve(tx.Address)
	if errors.Is(err, device.ErrIgnored) {
		res.Ignored = true
		res.Value = IgnoredValue
		res.Condition = ConditionIgnored
		r.logger.Debug("transaction ignored", "address", tx.Address)
		return res
	}
	if err != nil {
		// Unreachable for tokenizer output, which always carries a
		// canonical address.
		r.logger.Error("resolving device", "address", tx.Address, "error", err)
		res.Malformed = true
		res.Condition = ConditionMalformed
		return res
	}

	state.Touch(r.now())
	res.Name = state.Name
	res.Color = state.Color
	res.Page = state.CurrentPage()

	if tx.AddressOnly() {
		res.Register = NoData
		res.Value = NoData
		res.Condition = ConditionNoData
		r.trace(state, device.VerbosityMin, "address-only transaction",
			"direction", tx.Direction.String(), "ack", tx.AddressAck.String())
		return res
	}

	payload := tx.Payload()
	var data []byte
	if tx.Direction == i2c.Write {
		res.Register = i2c.FormatByte(payload[0])
		state.LatchRegister(res.Register)
		data = payload[1:]
	} else {
		res.Register = state.LastRegister()
		data = payload
	}

	reg, ok := state.Lookup(res.Register)
	if !ok {
		res.Format = regmap.FormatUnknown
		res.Value = i2c.HexString(data)
		if res.Value == "" {
			res.Value = NoData
		}
		res.Condition = ConditionUnresolvedRegister
		r.trace(state, device.VerbosityMin, "register not found",
			"register", res.Register, "page", res.Page)
		return res
	}

	res.RegisterName = reg.Name
	res.Format = reg.Format
	r.trace(state, device.VerbosityMax, "register conversion",
		"register", res.Register, "name", reg.Name, "format", reg.Tag, "data", i2c.HexString(data))

	decoded, err := regmap.Decode(reg, data)
	switch {
	case errors.Is(err, regmap.ErrUnsupportedFormat):
		res.Condition = ConditionUnsupportedFormat
		r.logger.Warn("format not implemented",
			"address", res.Address, "register", res.Register, "format", reg.Tag)
	case err != nil:
		r.logger.Error("decoding register", "address", res.Address, "register", res.Register, "error", err)
	}

	res.Value = decoded.Value
	if reg.Format == regmap.FormatPage && len(data) > 0 {
		res.Value, res.Condition = r.switchPage(state, decoded.PageID)
	}
	if decoded.HasNumeric {
		v := decoded.Numeric
		res.Numeric = &v
	}
	if len(data) > 0 && reg.Units != "" {
		res.Units = reg.Units
		res.Value += reg.Units
	}

	r.trace(state, device.VerbosityMin, "decoded",
		"register", res.Register, "name", res.RegisterName, "value", res.Value)
	return res
}

// switchPage applies a PAGE write and returns the result text.
func (r *Resolver) switchPage(state *device.State, id string) (string, Condition) {
	if state.SwitchPage(id) {
		r.trace(state, device.VerbosityMin, "page changed", "page", id)
		return fmt.Sprintf("New Page Address: %s", id), ConditionNone
	}
	r.logger.Warn("no matching page",
		"address", state.Address, "page", id, "current_page", state.CurrentPage())
	return fmt.Sprintf("No Matching Page Address for: %s", id), ConditionUnresolvedPage
}

// trace logs a diagnostic record when the device's verbosity reaches
// level. Minimum-level records go out at info, maximum-level at debug.
func (r *Resolver) trace(state *device.State, level device.Verbosity, msg string, args ...any) {
	if state.Verbosity < level {
		return
	}
	args = append([]any{"address", state.Address, "device", state.Name}, args...)
	if level >= device.VerbosityMax {
		r.logger.Debug(msg, args...)
		return
	}
	r.logger.Info(msg, args...)
}
