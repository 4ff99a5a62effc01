package schema

// Event type constants for the session event stream.
// Every state transition emits exactly one of these.
const (
	EventStatusChange = "status_change"
	EventInputNeeded  = "input_needed"
	EventCompleted    = "completed"
	EventFailed       = "failed"
	EventCancelled    = "cancelled"
)

// EventTypeFor returns the event name emitted when a session enters status.
func EventTypeFor(status SessionStatus) string {
	switch status {
	case SessionStatusWaitingForInput:
		return EventInputNeeded
	case SessionStatusCompleted:
		return EventCompleted
	case SessionStatusFailed:
		return EventFailed
	case SessionStatusCancelled:
		return EventCancelled
	default:
		return EventStatusChange
	}
}
