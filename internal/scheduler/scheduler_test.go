package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seventech-gov/browser-use/internal/store"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

type fakeRunner struct {
	mu   sync.Mutex
	runs []string // plan IDs
	err  error
}

func (r *fakeRunner) ExecutePlan(_ context.Context, planID string, _ map[string]string) (*schema.ExecutionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, planID)
	if r.err != nil {
		return nil, r.err
	}
	return &schema.ExecutionResult{ExecutionID: "exec-" + planID, PlanID: planID, Status: schema.ExecutionSuccess}, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func newTestStore(t *testing.T) *store.LibSQLStore {
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

func seedPlan(t *testing.T, s *store.LibSQLStore) string {
	t.Helper()
	plan := &schema.Plan{
		Metadata: schema.PlanMetadata{PlanID: uuid.NewString(), Name: "consultar_multas"},
		Steps: []schema.PlanStep{
			{SequenceID: 0, Action: schema.ActionGoto, Params: map[string]any{"url": "https://example.gov.br"}},
		},
	}
	rec, err := store.NewPlanRecord(plan)
	require.NoError(t, err)
	require.NoError(t, s.SavePlan(context.Background(), rec))
	return rec.ID
}

func TestRegisterRejectsInvalidCron(t *testing.T) {
	s := newTestStore(t)
	sched := New(s, &fakeRunner{}, slog.New(slog.DiscardHandler))

	err := sched.Register(context.Background(), &store.ScheduledJob{
		ID:       uuid.NewString(),
		PlanID:   "plan-1",
		CronExpr: "not a cron",
		Enabled:  true,
	})
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestRegisterStampsNextRun(t *testing.T) {
	s := newTestStore(t)
	sched := New(s, &fakeRunner{}, slog.New(slog.DiscardHandler))
	planID := seedPlan(t, s)

	job := &store.ScheduledJob{
		ID:       uuid.NewString(),
		PlanID:   planID,
		CronExpr: "0 8 * * *",
		Enabled:  true,
	}
	require.NoError(t, sched.Register(context.Background(), job))

	got, err := s.GetScheduledJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRunAt)
	assert.True(t, got.NextRunAt.After(time.Now().UTC().Add(-time.Minute)))
}

func TestTickRunsDueJobs(t *testing.T) {
	s := newTestStore(t)
	runner := &fakeRunner{}
	sched := New(s, runner, slog.New(slog.DiscardHandler))
	planID := seedPlan(t, s)

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, s.CreateScheduledJob(context.Background(), &store.ScheduledJob{
		ID:        uuid.NewString(),
		PlanID:    planID,
		CronExpr:  "* * * * *",
		Params:    map[string]string{"plate": "ABC1D23"},
		Enabled:   true,
		NextRunAt: &past,
	}))

	sched.Tick(context.Background())
	assert.Equal(t, 1, runner.count())

	// Bookkeeping advanced next_run_at past now, so a second tick is a no-op.
	sched.Tick(context.Background())
	assert.Equal(t, 1, runner.count())
}

func TestTickSkipsFutureAndDisabledJobs(t *testing.T) {
	s := newTestStore(t)
	runner := &fakeRunner{}
	sched := New(s, runner, slog.New(slog.DiscardHandler))
	planID := seedPlan(t, s)

	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, s.CreateScheduledJob(context.Background(), &store.ScheduledJob{
		ID: uuid.NewString(), PlanID: planID, CronExpr: "* * * * *",
		Enabled: true, NextRunAt: &future,
	}))
	require.NoError(t, s.CreateScheduledJob(context.Background(), &store.ScheduledJob{
		ID: uuid.NewString(), PlanID: planID, CronExpr: "* * * * *",
		Enabled: false, NextRunAt: &past,
	}))

	sched.Tick(context.Background())
	assert.Equal(t, 0, runner.count())
}

func TestTickRecordsRunIDEvenOnRunnerError(t *testing.T) {
	s := newTestStore(t)
	runner := &fakeRunner{err: errors.New("surface down")}
	sched := New(s, runner, slog.New(slog.DiscardHandler))
	planID := seedPlan(t, s)

	jobID := uuid.NewString()
	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, s.CreateScheduledJob(context.Background(), &store.ScheduledJob{
		ID: jobID, PlanID: planID, CronExpr: "* * * * *",
		Enabled: true, NextRunAt: &past,
	}))

	sched.Tick(context.Background())

	got, err := s.GetScheduledJob(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)
	assert.Empty(t, got.LastRunID)
	require.NotNil(t, got.NextRunAt)
	assert.True(t, got.NextRunAt.After(time.Now().UTC().Add(-time.Minute)))
}

func TestStartStop(t *testing.T) {
	s := newTestStore(t)
	sched := New(s, &fakeRunner{}, slog.New(slog.DiscardHandler))

	require.NoError(t, sched.Start(context.Background()))
	require.Error(t, sched.Start(context.Background()))
	require.NoError(t, sched.Stop())
	require.NoError(t, sched.Stop())
}
