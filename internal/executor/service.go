package executor

import (
	"context"
	"log/slog"

	"github.com/seventech-gov/browser-use/internal/store"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

// Service ties the engine to persistence: it loads plans by id, replays them
// and records every outcome. Both the HTTP API and the scheduler run plans
// through it.
type Service struct {
	store  store.Store
	engine *Engine
	logger *slog.Logger
}

func NewService(st store.Store, engine *Engine, logger *slog.Logger) *Service {
	return &Service{store: st, engine: engine, logger: logger}
}

// ExecutePlan loads the stored plan, replays it and persists the result.
// Parameter validation errors surface before anything is recorded.
func (s *Service) ExecutePlan(ctx context.Context, planID string, params map[string]string) (*schema.ExecutionResult, error) {
	rec, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	plan, err := rec.Plan()
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "decode stored plan").WithCause(err)
	}

	result, err := s.engine.Execute(ctx, plan, params)
	if err != nil {
		return nil, err
	}

	execRec, err := store.NewExecutionRecord(result)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "encode execution result").WithCause(err)
	}
	if err := s.store.SaveExecution(ctx, execRec); err != nil {
		// The replay already happened; losing the record is worth surfacing
		// but the result itself is still returned to the caller.
		s.logger.Error("persist execution result",
			slog.String("execution_id", result.ExecutionID),
			slog.String("error", err.Error()))
		return result, schema.NewError(schema.ErrCodeStore, "persist execution result").WithCause(err)
	}

	s.logger.Info("plan executed",
		slog.String("plan_id", planID),
		slog.String("execution_id", result.ExecutionID),
		slog.String("status", string(result.Status)),
		slog.Int("steps_completed", result.StepsCompleted))
	return result, nil
}
