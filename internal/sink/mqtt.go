package sink

import (
	"context"
	"errors"

	"github.com/nerrad567/busdecode/internal/infrastructure/mqtt"
	"github.com/nerrad567/busdecode/internal/resolver"
)

// Publisher is the subset of the MQTT client used by MQTTSink.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// RegisterValue is the retained payload of a register topic.
type RegisterValue struct {
	Address      string   `json:"address"`
	Name         string   `json:"name"`
	Register     string   `json:"register"`
	RegisterName string   `json:"register_name"`
	Page         string   `json:"page,omitempty"`
	Value        string   `json:"value"`
	Units        string   `json:"units,omitempty"`
	Numeric      *float64 `json:"numeric,omitempty"`
	RunID        string   `json:"run_id"`
	Seq          int64    `json:"seq"`
}

// MQTTSink publishes records to the broker.
//
// Every non-ignored record goes to busdecode/decoded/{address}. Cleanly
// decoded registers also update the retained busdecode/register topic,
// and malformed or degraded records are copied to busdecode/errors.
type MQTTSink struct {
	pub    Publisher
	topics mqtt.Topics
}

// NewMQTTSink creates a sink over pub.
func NewMQTTSink(pub Publisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

// Name implements Sink.
func (*MQTTSink) Name() string { return "mqtt" }

// Handle implements Sink.
func (s *MQTTSink) Handle(_ context.Context, rec Record) error {
	r := rec.Result
	if r.Ignored {
		return nil
	}

	var errs []error
	if r.Malformed {
		return s.pub.PublishJSON(s.topics.Errors(), rec, false)
	}

	errs = append(errs, s.pub.PublishJSON(s.topics.Decoded(r.Address), rec, false))

	switch {
	case r.Degraded():
		errs = append(errs, s.pub.PublishJSON(s.topics.Errors(), rec, false))
	case r.RegisterName != "" && r.Register != resolver.NoData:
		errs = append(errs, s.pub.PublishJSON(s.topics.Register(r.Address, r.Register), RegisterValue{
			Address:      r.Address,
			Name:         r.Name,
			Register:     r.Register,
			RegisterName: r.RegisterName,
			Page:         r.Page,
			Value:        r.Value,
			Units:        r.Units,
			Numeric:      r.Numeric,
			RunID:        rec.RunID,
			Seq:          rec.Seq,
		}, true))
	}

	return errors.Join(errs...)
}
