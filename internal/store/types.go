package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// PlanRecord is the persisted form of a compiled plan. Metadata columns are
// denormalized for filtering; the full plan document is kept as JSON so the
// stored plan round-trips exactly.
type PlanRecord struct {
	ID        string
	Name      string
	Tags      []string
	Document  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPlanRecord builds a record from a compiled plan.
func NewPlanRecord(plan *schema.Plan) (*PlanRecord, error) {
	doc, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}
	return &PlanRecord{
		ID:        plan.Metadata.PlanID,
		Name:      plan.Metadata.Name,
		Tags:      plan.Metadata.Tags,
		Document:  doc,
		CreatedAt: plan.Metadata.CreatedAt,
		UpdatedAt: plan.Metadata.UpdatedAt,
	}, nil
}

// Plan decodes the stored plan document.
func (r *PlanRecord) Plan() (*schema.Plan, error) {
	var plan schema.Plan
	if err := json.Unmarshal(r.Document, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan %s: %w", r.ID, err)
	}
	return &plan, nil
}

// PlanFilter narrows ListPlans. Zero value means all plans.
type PlanFilter struct {
	Tag   string
	Name  string
	Limit int
}

// ExecutionRecord is the persisted form of one plan replay outcome.
type ExecutionRecord struct {
	ID        string
	PlanID    string
	Status    schema.ExecutionStatus
	Document  json.RawMessage
	CreatedAt time.Time
}

// NewExecutionRecord builds a record from an execution result.
func NewExecutionRecord(result *schema.ExecutionResult) (*ExecutionRecord, error) {
	doc, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal execution result: %w", err)
	}
	return &ExecutionRecord{
		ID:       result.ExecutionID,
		PlanID:   result.PlanID,
		Status:   result.Status,
		Document: doc,
	}, nil
}

// Result decodes the stored execution result.
func (r *ExecutionRecord) Result() (*schema.ExecutionResult, error) {
	var result schema.ExecutionResult
	if err := json.Unmarshal(r.Document, &result); err != nil {
		return nil, fmt.Errorf("unmarshal execution %s: %w", r.ID, err)
	}
	return &result, nil
}

// ExecutionFilter narrows ListExecutions. Zero value means all executions.
type ExecutionFilter struct {
	PlanID string
	Status schema.ExecutionStatus
	Limit  int
}

// SessionEventRecord is one appended session event. Seq is assigned by the
// store and strictly increases per session.
type SessionEventRecord struct {
	Seq       int64           `json:"seq"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// ScheduledJob is a recurring plan replay registration.
type ScheduledJob struct {
	ID        string            `json:"schedule_id"`
	PlanID    string            `json:"plan_id"`
	CronExpr  string            `json:"cron_expr"`
	Params    map[string]string `json:"params,omitempty"`
	Enabled   bool              `json:"enabled"`
	NextRunAt *time.Time        `json:"next_run_at,omitempty"`
	LastRunAt *time.Time        `json:"last_run_at,omitempty"`
	LastRunID string            `json:"last_run_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ScheduledJobFilter narrows ListScheduledJobs.
type ScheduledJobFilter struct {
	PlanID      string
	EnabledOnly bool
}

// ScheduledJobUpdate records the outcome of one triggered run.
type ScheduledJobUpdate struct {
	LastRunAt time.Time
	LastRunID string
	NextRunAt *time.Time
}
