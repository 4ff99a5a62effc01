// Package store is the persistence layer: compiled plans, execution results,
// the session event log, and scheduled replays. Plans and executions are
// write-once; only scheduled jobs are mutable.
package store

import "context"

// Store defines the persistence contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Plans (write-once; re-mapping produces a new plan)
	SavePlan(ctx context.Context, plan *PlanRecord) error
	GetPlan(ctx context.Context, id string) (*PlanRecord, error)
	ListPlans(ctx context.Context, filter PlanFilter) ([]*PlanRecord, error)
	DeletePlan(ctx context.Context, id string) error

	// Executions (write-once)
	SaveExecution(ctx context.Context, exec *ExecutionRecord) error
	GetExecution(ctx context.Context, id string) (*ExecutionRecord, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*ExecutionRecord, error)

	// Session event log (append-only audit trail)
	AppendSessionEvent(ctx context.Context, event *SessionEventRecord) error
	GetSessionEvents(ctx context.Context, sessionID string, since int64) ([]*SessionEventRecord, error)

	// Scheduled replays
	CreateScheduledJob(ctx context.Context, job *ScheduledJob) error
	GetScheduledJob(ctx context.Context, id string) (*ScheduledJob, error)
	ListScheduledJobs(ctx context.Context, filter ScheduledJobFilter) ([]*ScheduledJob, error)
	UpdateScheduledJobRun(ctx context.Context, id string, update ScheduledJobUpdate) error
	DeleteScheduledJob(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
