package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholder_RoundTrip(t *testing.T) {
	ref := Placeholder("cpf")
	assert.Equal(t, "{param:cpf}", ref)
	assert.Equal(t, []string{"cpf"}, PlaceholderRefs(ref))
}

func TestPlaceholderRefs_None(t *testing.T) {
	assert.Nil(t, PlaceholderRefs("plain text"))
}

func TestPlaceholderRefs_Multiple(t *testing.T) {
	refs := PlaceholderRefs("{param:user}@{param:domain}")
	assert.Equal(t, []string{"user", "domain"}, refs)
}

func TestSubstitutePlaceholders(t *testing.T) {
	out := SubstitutePlaceholders("{param:year}/{param:month}", map[string]string{
		"year":  "2025",
		"month": "06",
	})
	assert.Equal(t, "2025/06", out)
}

func TestSubstitutePlaceholders_MissingValueLeftUntouched(t *testing.T) {
	out := SubstitutePlaceholders("{param:missing}", map[string]string{})
	assert.Equal(t, "{param:missing}", out)
}

func TestReferencedParams_StableOrder(t *testing.T) {
	plan := &Plan{
		Steps: []PlanStep{
			{SequenceID: 0, Action: ActionInput, Params: map[string]any{"text": "{param:cpf}", "selector": "#cpf"}},
			{SequenceID: 1, Action: ActionInput, Params: map[string]any{"text": "{param:year}"}},
			{SequenceID: 2, Action: ActionInput, Params: map[string]any{"text": "{param:cpf}"}},
		},
	}
	assert.Equal(t, []string{"cpf", "year"}, plan.ReferencedParams())
}

func TestSessionStatus_Terminal(t *testing.T) {
	assert.True(t, SessionStatusCompleted.Terminal())
	assert.True(t, SessionStatusFailed.Terminal())
	assert.True(t, SessionStatusCancelled.Terminal())
	assert.False(t, SessionStatusRunning.Terminal())
	assert.False(t, SessionStatusWaitingForInput.Terminal())
}

func TestIsValidSessionTransition(t *testing.T) {
	assert.True(t, IsValidSessionTransition(SessionStatusStarted, SessionStatusRunning))
	assert.True(t, IsValidSessionTransition(SessionStatusRunning, SessionStatusWaitingForInput))
	assert.True(t, IsValidSessionTransition(SessionStatusWaitingForInput, SessionStatusRunning))
	assert.True(t, IsValidSessionTransition(SessionStatusWaitingForInput, SessionStatusCancelled))
	assert.False(t, IsValidSessionTransition(SessionStatusCompleted, SessionStatusRunning))
	assert.False(t, IsValidSessionTransition(SessionStatusCancelled, SessionStatusWaitingForInput))
}

func TestEventTypeFor(t *testing.T) {
	assert.Equal(t, EventStatusChange, EventTypeFor(SessionStatusRunning))
	assert.Equal(t, EventInputNeeded, EventTypeFor(SessionStatusWaitingForInput))
	assert.Equal(t, EventCompleted, EventTypeFor(SessionStatusCompleted))
	assert.Equal(t, EventFailed, EventTypeFor(SessionStatusFailed))
	assert.Equal(t, EventCancelled, EventTypeFor(SessionStatusCancelled))
}
