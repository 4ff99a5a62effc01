package schema

import "time"

// SessionStatus represents the lifecycle state of a mapping session.
type SessionStatus string

const (
	SessionStatusStarted         SessionStatus = "started"
	SessionStatusRunning         SessionStatus = "running"
	SessionStatusWaitingForInput SessionStatus = "waiting_for_input"
	SessionStatusCompleted       SessionStatus = "completed"
	SessionStatusFailed          SessionStatus = "failed"
	SessionStatusCancelled       SessionStatus = "cancelled"
)

// Terminal reports whether the status accepts no further mutation.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed || s == SessionStatusCancelled
}

// ValidSessionTransitions defines the allowed state transitions for mapping sessions.
var ValidSessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusStarted:         {SessionStatusRunning, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusRunning:         {SessionStatusWaitingForInput, SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusWaitingForInput: {SessionStatusRunning, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusCompleted:       {},
	SessionStatusFailed:          {},
	SessionStatusCancelled:       {},
}

// IsValidSessionTransition reports whether from -> to is an allowed transition.
func IsValidSessionTransition(from, to SessionStatus) bool {
	for _, a := range ValidSessionTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

// Objective is the user's automation intent. Immutable after mapping starts.
type Objective struct {
	Description string   `json:"description"`
	StartingURL string   `json:"starting_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PlanName    string   `json:"plan_name,omitempty"`
}

// CollectedParameter is a value supplied by the human operator during mapping.
type CollectedParameter struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// InputRequest describes the field the session is waiting on.
type InputRequest struct {
	FieldName   string `json:"field_name"`
	FieldLabel  string `json:"field_label"`
	Prompt      string `json:"prompt"`
	Placeholder string `json:"placeholder,omitempty"`
}

// MappingSession is the full serializable state of a mapping session. It is
// the payload for every session event and the response of status queries, so
// push and pull consumers agree on a single source of truth.
type MappingSession struct {
	SessionID           string               `json:"session_id"`
	Objective           Objective            `json:"objective"`
	Status              SessionStatus        `json:"status"`
	StepsCompleted      int                  `json:"steps_completed"`
	Steps               []PlanStep           `json:"steps,omitempty"`
	CollectedParameters []CollectedParameter `json:"collected_parameters,omitempty"`
	CurrentInputRequest *InputRequest        `json:"current_input_request,omitempty"`
	ExpectedOutput      string               `json:"expected_output,omitempty"`
	ErrorMessage        string               `json:"error_message,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}
