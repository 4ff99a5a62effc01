package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", SessionID(ctx))
	assert.Equal(t, "", PlanID(ctx))
	assert.Equal(t, "", ExecutionID(ctx))
	_, ok := Step(ctx)
	assert.False(t, ok)

	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithPlanID(ctx, "plan-1")
	ctx = WithExecutionID(ctx, "exec-1")
	ctx = WithStep(ctx, 3)

	assert.Equal(t, "sess-1", SessionID(ctx))
	assert.Equal(t, "plan-1", PlanID(ctx))
	assert.Equal(t, "exec-1", ExecutionID(ctx))
	seq, ok := Step(ctx)
	assert.True(t, ok)
	assert.Equal(t, 3, seq)
}

func TestCorrelationHandler_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithStep(WithExecutionID(context.Background(), "exec-9"), 0)
	logger.InfoContext(ctx, "step dispatched")

	out := buf.String()
	assert.True(t, strings.Contains(out, "execution_id=exec-9"), out)
	assert.True(t, strings.Contains(out, "step=0"), out)
	assert.False(t, strings.Contains(out, "session_id"), out)
}

func TestCorrelationHandler_NoIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("plain record")
	out := buf.String()
	assert.False(t, strings.Contains(out, "session_id"), out)
	assert.False(t, strings.Contains(out, "plan_id"), out)
}
