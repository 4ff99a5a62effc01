package executor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seventech-gov/browser-use/internal/extract"
	"github.com/seventech-gov/browser-use/internal/store"
	"github.com/seventech-gov/browser-use/internal/surface"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

func newServiceStore(t *testing.T) *store.LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewLibSQLStore("file:" + filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func TestServiceExecutePlanPersistsResult(t *testing.T) {
	st := newServiceStore(t)
	surf := newStubSurface()
	engine := New(surface.FactoryFunc(func(context.Context) (surface.Surface, error) {
		return surf, nil
	}), extract.NewEngine(), slog.New(slog.DiscardHandler), Config{})
	svc := NewService(st, engine, slog.New(slog.DiscardHandler))

	plan := fixturePlan()
	rec, err := store.NewPlanRecord(plan)
	require.NoError(t, err)
	require.NoError(t, st.SavePlan(context.Background(), rec))

	result, err := svc.ExecutePlan(context.Background(), plan.Metadata.PlanID, map[string]string{"plate": "ABC1D23"})
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionSuccess, result.Status)

	stored, err := st.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, plan.Metadata.PlanID, stored.PlanID)
	assert.Equal(t, schema.ExecutionSuccess, stored.Status)
}

func TestServiceExecutePlanUnknownPlan(t *testing.T) {
	st := newServiceStore(t)
	engine := New(surface.FactoryFunc(func(context.Context) (surface.Surface, error) {
		return newStubSurface(), nil
	}), extract.NewEngine(), slog.New(slog.DiscardHandler), Config{})
	svc := NewService(st, engine, slog.New(slog.DiscardHandler))

	_, err := svc.ExecutePlan(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestServiceExecutePlanMissingParameterNotPersisted(t *testing.T) {
	st := newServiceStore(t)
	engine := New(surface.FactoryFunc(func(context.Context) (surface.Surface, error) {
		return newStubSurface(), nil
	}), extract.NewEngine(), slog.New(slog.DiscardHandler), Config{})
	svc := NewService(st, engine, slog.New(slog.DiscardHandler))

	plan := fixturePlan()
	rec, err := store.NewPlanRecord(plan)
	require.NoError(t, err)
	require.NoError(t, st.SavePlan(context.Background(), rec))

	_, err = svc.ExecutePlan(context.Background(), plan.Metadata.PlanID, map[string]string{})
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeMissingParameter))

	execs, err := st.ListExecutions(context.Background(), store.ExecutionFilter{PlanID: plan.Metadata.PlanID})
	require.NoError(t, err)
	assert.Empty(t, execs)
}
