package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "busdecode/decoded/0x40")
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishRetained publishes a retained message with the configured default QoS.
// Register values and run status are retained; the per-transaction stream
// is not.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true) //nolint:gosec // QoS validated by config
}

// RunStatus describes a decode run on busdecode/system/run.
type RunStatus struct {
	RunID     string         `json:"run_id"`
	State     string         `json:"state"`
	Input     string         `json:"input,omitempty"`
	Lines     int            `json:"lines,omitempty"`
	Results   int            `json:"results,omitempty"`
	Degraded  map[string]int `json:"degraded,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Run states.
const (
	RunStarted  = "started"
	RunComplete = "complete"
)

// PublishRunStatus publishes status as the retained run topic, so a
// dashboard joining late still sees the outcome of the last capture.
func (c *Client) PublishRunStatus(status RunStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("%w: marshalling run status: %w", ErrPublishFailed, err)
	}
	return c.PublishRetained(Topics{}.SystemRun(), payload)
}

// PublishJSON marshals v and publishes it with the configured default QoS.
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshalling payload: %w", ErrPublishFailed, err)
	}
	return c.Publish(topic, payload, byte(c.cfg.QoS), retained) //nolint:gosec // QoS validated by config
}

// validatePublish checks publish arguments before touching the connection.
func validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	return nil
}
