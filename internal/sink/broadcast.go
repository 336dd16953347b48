package sink

import "context"

// ChannelDecoded is the WebSocket channel carrying every record.
const ChannelDecoded = "transaction.decoded"

// Broadcaster is the subset of the WebSocket hub used by BroadcastSink.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// BroadcastSink relays records to live WebSocket subscribers.
type BroadcastSink struct {
	b Broadcaster
}

// NewBroadcastSink creates a sink over b.
func NewBroadcastSink(b Broadcaster) *BroadcastSink {
	return &BroadcastSink{b: b}
}

// Name implements Sink.
func (*BroadcastSink) Name() string { return "websocket" }

// Handle implements Sink.
func (s *BroadcastSink) Handle(_ context.Context, rec Record) error {
	s.b.Broadcast(ChannelDecoded, rec)
	return nil
}
