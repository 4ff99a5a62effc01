package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func seedPlan(t *testing.T, s *LibSQLStore, tags ...string) *PlanRecord {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	plan := &schema.Plan{
		Metadata: schema.PlanMetadata{
			PlanID:         uuid.NewString(),
			Name:           "consultar_multas",
			RequiredParams: []string{"plate"},
			Tags:           tags,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		Steps: []schema.PlanStep{
			{SequenceID: 0, Action: schema.ActionGoto, Params: map[string]any{"url": "https://example.gov.br"}},
		},
	}
	rec, err := NewPlanRecord(plan)
	require.NoError(t, err)
	require.NoError(t, s.SavePlan(context.Background(), rec))
	return rec
}

// --- Plan tests ---

func TestSaveAndGetPlan(t *testing.T) {
	s := newTestStore(t)
	rec := seedPlan(t, s, "detran")

	got, err := s.GetPlan(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "consultar_multas", got.Name)
	assert.Equal(t, []string{"detran"}, got.Tags)

	plan, err := got.Plan()
	require.NoError(t, err)
	assert.Equal(t, []string{"plate"}, plan.Metadata.RequiredParams)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, schema.ActionGoto, plan.Steps[0].Action)
}

func TestGetPlanNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetPlan(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestSavePlanDuplicateIDConflicts(t *testing.T) {
	s := newTestStore(t)
	rec := seedPlan(t, s)

	err := s.SavePlan(context.Background(), rec)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeConflict))
}

func TestListPlansByTag(t *testing.T) {
	s := newTestStore(t)
	tagged := seedPlan(t, s, "detran", "multas")
	seedPlan(t, s, "ipva")

	got, err := s.ListPlans(context.Background(), PlanFilter{Tag: "detran"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tagged.ID, got[0].ID)

	all, err := s.ListPlans(context.Background(), PlanFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeletePlan(t *testing.T) {
	s := newTestStore(t)
	rec := seedPlan(t, s)

	require.NoError(t, s.DeletePlan(context.Background(), rec.ID))

	_, err := s.GetPlan(context.Background(), rec.ID)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))

	err = s.DeletePlan(context.Background(), rec.ID)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

// --- Execution tests ---

func TestSaveAndGetExecution(t *testing.T) {
	s := newTestStore(t)
	plan := seedPlan(t, s)

	result := &schema.ExecutionResult{
		ExecutionID:    uuid.NewString(),
		PlanID:         plan.ID,
		Status:         schema.ExecutionSuccess,
		StepsCompleted: 1,
		TotalSteps:     1,
		Artifacts: []schema.Artifact{
			{ArtifactID: uuid.NewString(), Type: schema.ArtifactText, Name: "step_000_extract.txt", Content: "ok"},
		},
	}
	rec, err := NewExecutionRecord(result)
	require.NoError(t, err)
	require.NoError(t, s.SaveExecution(context.Background(), rec))

	got, err := s.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionSuccess, got.Status)

	decoded, err := got.Result()
	require.NoError(t, err)
	require.Len(t, decoded.Artifacts, 1)
	assert.Equal(t, "ok", decoded.Artifacts[0].Content)
}

func TestListExecutionsFiltered(t *testing.T) {
	s := newTestStore(t)
	plan := seedPlan(t, s)
	other := seedPlan(t, s)

	for i, status := range []schema.ExecutionStatus{schema.ExecutionSuccess, schema.ExecutionFailure} {
		rec, err := NewExecutionRecord(&schema.ExecutionResult{
			ExecutionID: uuid.NewString(),
			PlanID:      plan.ID,
			Status:      status,
			TotalSteps:  i + 1,
		})
		require.NoError(t, err)
		require.NoError(t, s.SaveExecution(context.Background(), rec))
	}
	rec, err := NewExecutionRecord(&schema.ExecutionResult{
		ExecutionID: uuid.NewString(), PlanID: other.ID, Status: schema.ExecutionSuccess,
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveExecution(context.Background(), rec))

	byPlan, err := s.ListExecutions(context.Background(), ExecutionFilter{PlanID: plan.ID})
	require.NoError(t, err)
	assert.Len(t, byPlan, 2)

	failed, err := s.ListExecutions(context.Background(), ExecutionFilter{PlanID: plan.ID, Status: schema.ExecutionFailure})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

// --- Session event log tests ---

func TestAppendAndGetSessionEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, typ := range []string{schema.EventStatusChange, schema.EventInputNeeded, schema.EventCompleted} {
		ev := &SessionEventRecord{
			SessionID: "sess-1",
			EventType: typ,
			Payload:   json.RawMessage(`{"status":"x"}`),
		}
		require.NoError(t, s.AppendSessionEvent(ctx, ev))
		assert.Greater(t, ev.Seq, int64(0))
	}

	all, err := s.GetSessionEvents(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, schema.EventStatusChange, all[0].EventType)
	assert.Equal(t, schema.EventCompleted, all[2].EventType)
	assert.Less(t, all[0].Seq, all[1].Seq)

	tail, err := s.GetSessionEvents(ctx, "sess-1", all[0].Seq)
	require.NoError(t, err)
	assert.Len(t, tail, 2)
}

// --- Scheduled job tests ---

func TestScheduledJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	plan := seedPlan(t, s)

	job := &ScheduledJob{
		ID:       uuid.NewString(),
		PlanID:   plan.ID,
		CronExpr: "0 8 * * *",
		Params:   map[string]string{"plate": "ABC1D23"},
		Enabled:  true,
	}
	require.NoError(t, s.CreateScheduledJob(ctx, job))

	got, err := s.GetScheduledJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 8 * * *", got.CronExpr)
	assert.Equal(t, map[string]string{"plate": "ABC1D23"}, got.Params)
	assert.True(t, got.Enabled)
	assert.Nil(t, got.LastRunAt)

	runAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateScheduledJobRun(ctx, job.ID, ScheduledJobUpdate{
		LastRunAt: runAt,
		LastRunID: "exec-1",
	}))

	got, err = s.GetScheduledJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)
	assert.Equal(t, "exec-1", got.LastRunID)

	jobs, err := s.ListScheduledJobs(ctx, ScheduledJobFilter{PlanID: plan.ID, EnabledOnly: true})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	require.NoError(t, s.DeleteScheduledJob(ctx, job.ID))
	_, err = s.GetScheduledJob(ctx, job.ID)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}
