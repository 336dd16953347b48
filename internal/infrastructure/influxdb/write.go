package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementRegister is the measurement holding decoded register values.
const MeasurementRegister = "register_value"

// Sample is one numeric register reading.
type Sample struct {
	RunID        string
	Address      string
	Device       string
	Register     string
	RegisterName string
	Page         string
	Format       string
	Units        string
	Value        float64
	Time         time.Time
}

// WriteSample queues a register reading. The write is non-blocking; data
// is batched and sent asynchronously.
//
// Example:
//
//	client.WriteSample(influxdb.Sample{
//	    Address: "0x40", Register: "0x8B", RegisterName: "READ_VOUT",
//	    Format: "L16", Units: "V", Value: 5.70, Time: time.Now(),
//	})
func (c *Client) WriteSample(s Sample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(samplePoint(s))
}

// samplePoint converts a sample to a point. Empty tags are omitted and a
// zero time becomes now.
func samplePoint(s Sample) *write.Point {
	tags := make(map[string]string, 8) //nolint:mnd // tag count
	for k, v := range map[string]string{
		"run_id":        s.RunID,
		"address":       s.Address,
		"device":        s.Device,
		"register":      s.Register,
		"register_name": s.RegisterName,
		"page":          s.Page,
		"format":        s.Format,
		"units":         s.Units,
	} {
		if v != "" {
			tags[k] = v
		}
	}

	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(MeasurementRegister, tags, map[string]interface{}{"value": s.Value}, ts)
}
