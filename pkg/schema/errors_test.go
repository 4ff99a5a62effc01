package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutomationError_Error(t *testing.T) {
	err := NewError(ErrCodeOrdering, "expected sequence_id 3, got 5")
	assert.Equal(t, "[ORDERING_ERROR] expected sequence_id 3, got 5", err.Error())
}

func TestAutomationError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewErrorf(ErrCodeStore, "insert plan: %s", cause.Error()).WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestIsCode(t *testing.T) {
	err := NewError(ErrCodeMissingParameter, "missing parameters").
		WithDetails(map[string]any{"missing": []string{"cpf"}})
	assert.True(t, IsCode(err, ErrCodeMissingParameter))
	assert.False(t, IsCode(err, ErrCodeTimeout))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeMissingParameter))
	assert.False(t, IsCode(nil, ErrCodeMissingParameter))
}

func TestIsCode_Wrapped(t *testing.T) {
	inner := NewError(ErrCodeSessionTerminated, "session is cancelled")
	wrapped := fmt.Errorf("provide input: %w", inner)
	assert.True(t, IsCode(wrapped, ErrCodeSessionTerminated))
	assert.Equal(t, ErrCodeSessionTerminated, ErrorCode(wrapped))
}
