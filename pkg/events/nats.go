package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSEmitter publishes event payloads as JSON on a NATS connection,
// using the event type as the subject.
type NATSEmitter struct {
	conn *nats.Conn
}

// NewNATSEmitter connects to the given NATS URL.
func NewNATSEmitter(url string) (*NATSEmitter, error) {
	conn, err := nats.Connect(url, nats.Name("shiftsync-core"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEmitter{conn: conn}, nil
}

// Emit publishes the payload on the subject named by its type.
func (e *NATSEmitter) Emit(p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if err := e.conn.Publish(p.Type, data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", p.Type, err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (e *NATSEmitter) Close() {
	_ = e.conn.Drain()
}
