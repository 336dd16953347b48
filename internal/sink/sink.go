// Package sink fans decoded results out to the optional outputs of a run:
// the history store, the MQTT broker, InfluxDB and live WebSocket clients.
//
// Sinks never stop a run. A failing sink is logged and the next record
// is still offered to it.
package sink

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/busdecode/internal/resolver"
)

// Record is one resolved transaction with its position in a run.
type Record struct {
	RunID string    `json:"run_id"`
	Seq   int64     `json:"seq"`
	Time  time.Time `json:"time"`
	resolver.Result
}

// Sink consumes records.
type Sink interface {
	Name() string
	Handle(ctx context.Context, rec Record) error
}

// Logger is the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// FailureRecorder counts sink failures by sink name.
type FailureRecorder interface {
	SinkFailed(name string)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Dispatcher offers every record to each registered sink in order.
//
// Thread Safety: Add and Dispatch may be called concurrently; records
// are delivered in the order Dispatch is called.
type Dispatcher struct {
	mu       sync.Mutex
	sinks    []Sink
	failures map[string]int
	recorder FailureRecorder
	logger   Logger
}

// NewDispatcher creates a dispatcher over sinks.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:    sinks,
		failures: make(map[string]int),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for sink failures.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.mu.Lock()
	d.logger = logger
	d.mu.Unlock()
}

// SetFailureRecorder sets an external counter for sink failures.
func (d *Dispatcher) SetFailureRecorder(r FailureRecorder) {
	d.mu.Lock()
	d.recorder = r
	d.mu.Unlock()
}

// Add registers another sink.
func (d *Dispatcher) Add(s Sink) {
	d.mu.Lock()
	d.sinks = append(d.sinks, s)
	d.mu.Unlock()
}

// Len returns the number of registered sinks.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sinks)
}

// Dispatch hands rec to every sink. Errors are logged and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, rec Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.sinks {
		if err := s.Handle(ctx, rec); err != nil {
			d.failures[s.Name()]++
			if d.recorder != nil {
				d.recorder.SinkFailed(s.Name())
			}
			d.logger.Warn("sink failed",
				"sink", s.Name(),
				"run_id", rec.RunID,
				"seq", rec.Seq,
				"address", rec.Address,
				"error", err,
			)
		}
	}
}

// Failures returns the failure count per sink name.
func (d *Dispatcher) Failures() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.failures))
	for k, v := range d.failures {
		out[k] = v
	}
	return out
}
