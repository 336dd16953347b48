package sink

import (
	"context"

	"github.com/nerrad567/busdecode/internal/infrastructure/influxdb"
)

// SampleWriter is the subset of the InfluxDB client used by MetricSink.
type SampleWriter interface {
	WriteSample(s influxdb.Sample)
}

// MetricSink writes numeric register values as time-series samples.
// Records without a numeric value are skipped.
type MetricSink struct {
	w SampleWriter
}

// NewMetricSink creates a sink over w.
func NewMetricSink(w SampleWriter) *MetricSink {
	return &MetricSink{w: w}
}

// Name implements Sink.
func (*MetricSink) Name() string { return "influxdb" }

// Handle implements Sink. Writes are asynchronous, so it never fails.
func (s *MetricSink) Handle(_ context.Context, rec Record) error {
	r := rec.Result
	if r.Numeric == nil || r.Degraded() || r.Ignored {
		return nil
	}
	s.w.WriteSample(influxdb.Sample{
		RunID:        rec.RunID,
		Address:      r.Address,
		Device:       r.Name,
		Register:     r.Register,
		RegisterName: r.RegisterName,
		Page:         r.Page,
		Format:       r.Format.String(),
		Units:        r.Units,
		Value:        *r.Numeric,
		Time:         rec.Time,
	})
	return nil
}
