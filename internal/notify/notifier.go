// Package notify dispatches workflow events to interested parties.
// Dispatch is best-effort: transition handling never fails or rolls back
// because a notification could not be delivered.
package notify

import (
	"context"
	"log/slog"
)

// Event types emitted by the transition engine and the escalation monitor.
const (
	EventOrderAdvanced  = "order_advanced"
	EventOrderRejected  = "order_rejected"
	EventOrderReturned  = "order_returned"
	EventOrderEscalated = "order_escalated"
)

// Event is one workflow notification.
type Event struct {
	Type       string         `json:"event_type"`
	OrderID    string         `json:"order_id"`
	OrderType  string         `json:"order_type"`
	Stage      string         `json:"stage"`
	Actor      string         `json:"actor"`
	Recipients []string       `json:"recipients,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Notifier delivers workflow events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// LogNotifier writes events to slog. Used in development and as the
// fallback when no broker is configured.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send logs the event.
func (n *LogNotifier) Send(_ context.Context, event Event) error {
	slog.Info("workflow event",
		"event_type", event.Type,
		"order_id", event.OrderID,
		"order_type", event.OrderType,
		"stage", event.Stage,
		"actor", event.Actor,
	)
	return nil
}
