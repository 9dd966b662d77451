package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSNotifier publishes workflow events to NATS for consumption by the
// notification service.
//
// Subject convention: <prefix>.<event_type>, e.g.
// notifications.workflow.order_rejected.
type NATSNotifier struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATSNotifier connects to the given NATS URL.
func NewNATSNotifier(url, subjectPrefix string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("orderflow"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSNotifier{conn: conn, subjectPrefix: subjectPrefix}, nil
}

// Send publishes the event. The context is accepted for interface
// compatibility; NATS publishes are fire-and-forget.
func (n *NATSNotifier) Send(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", n.subjectPrefix, event.Type)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish workflow event to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
