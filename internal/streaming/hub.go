package streaming

import (
	"context"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// SessionEvent is a real-time event emitted on a mapping session transition.
// The payload is the full MappingSession value at the moment of the
// transition, so stream consumers never need a second state source.
type SessionEvent struct {
	SessionID string                 `json:"session_id"`
	EventType string                 `json:"event_type"`
	Session   *schema.MappingSession `json:"session"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	SessionID  string   `json:"session_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for real-time session events.
// Delivery is at-most-once per transition; pollers reconcile missed events
// from the session status query.
type EventHub interface {
	Publish(ctx context.Context, event SessionEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan SessionEvent, func(), error)
}
