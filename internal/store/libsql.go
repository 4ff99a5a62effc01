package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Plans ---

func (s *LibSQLStore) SavePlan(ctx context.Context, plan *PlanRecord) error {
	tags, err := marshalSliceOrDefault(plan.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, name, tags, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.Name, string(tags), string(plan.Document),
		timeOrNow(plan.CreatedAt), timeOrNow(plan.UpdatedAt),
	)
	if isConstraintErr(err) {
		return schema.NewErrorf(schema.ErrCodeConflict, "plan %q already exists", plan.ID)
	}
	return err
}

func (s *LibSQLStore) GetPlan(ctx context.Context, id string) (*PlanRecord, error) {
	r := &PlanRecord{}
	var tags sql.NullString
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, tags, document, created_at, updated_at FROM plans WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &tags, &document, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("plan", id)
	}
	if err != nil {
		return nil, err
	}
	r.Document = json.RawMessage(document)
	r.Tags = unmarshalSlice(tags)
	return r, nil
}

func (s *LibSQLStore) ListPlans(ctx context.Context, filter PlanFilter) ([]*PlanRecord, error) {
	query := `SELECT id, name, tags, document, created_at, updated_at FROM plans`
	var conds []string
	var args []any

	if filter.Name != "" {
		conds = append(conds, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.Tag != "" {
		// Tags are stored as a JSON array of strings.
		conds = append(conds, "tags LIKE ?")
		args = append(args, `%"`+filter.Tag+`"%`)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PlanRecord
	for rows.Next() {
		r := &PlanRecord{}
		var tags sql.NullString
		var document string
		if err := rows.Scan(&r.ID, &r.Name, &tags, &document, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Document = json.RawMessage(document)
		r.Tags = unmarshalSlice(tags)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *LibSQLStore) DeletePlan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "plan", id)
}

// --- Executions ---

func (s *LibSQLStore) SaveExecution(ctx context.Context, exec *ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, plan_id, status, document, created_at) VALUES (?, ?, ?, ?, ?)`,
		exec.ID, exec.PlanID, string(exec.Status), string(exec.Document), timeOrNow(exec.CreatedAt),
	)
	if isConstraintErr(err) {
		return schema.NewErrorf(schema.ErrCodeConflict, "execution %q already exists", exec.ID)
	}
	return err
}

func (s *LibSQLStore) GetExecution(ctx context.Context, id string) (*ExecutionRecord, error) {
	r := &ExecutionRecord{}
	var status, document string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, plan_id, status, document, created_at FROM executions WHERE id = ?`, id,
	).Scan(&r.ID, &r.PlanID, &status, &document, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("execution", id)
	}
	if err != nil {
		return nil, err
	}
	r.Status = schema.ExecutionStatus(status)
	r.Document = json.RawMessage(document)
	return r, nil
}

func (s *LibSQLStore) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*ExecutionRecord, error) {
	query := `SELECT id, plan_id, status, document, created_at FROM executions`
	var conds []string
	var args []any

	if filter.PlanID != "" {
		conds = append(conds, "plan_id = ?")
		args = append(args, filter.PlanID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ExecutionRecord
	for rows.Next() {
		r := &ExecutionRecord{}
		var status, document string
		if err := rows.Scan(&r.ID, &r.PlanID, &status, &document, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Status = schema.ExecutionStatus(status)
		r.Document = json.RawMessage(document)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Session event log ---

func (s *LibSQLStore) AppendSessionEvent(ctx context.Context, event *SessionEventRecord) error {
	payload, err := nullableJSON(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_events (session_id, event_type, payload, created_at) VALUES (?, ?, ?, ?)`,
		event.SessionID, event.EventType, payload, timeOrNow(event.CreatedAt),
	)
	if err != nil {
		return err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	event.Seq = seq
	return nil
}

func (s *LibSQLStore) GetSessionEvents(ctx context.Context, sessionID string, since int64) ([]*SessionEventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, session_id, event_type, payload, created_at
		 FROM session_events WHERE session_id = ? AND seq > ? ORDER BY seq ASC`,
		sessionID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SessionEventRecord
	for rows.Next() {
		r := &SessionEventRecord{}
		var payload sql.NullString
		if err := rows.Scan(&r.Seq, &r.SessionID, &r.EventType, &payload, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Payload = jsonOrNil(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Scheduled jobs ---

func (s *LibSQLStore) CreateScheduledJob(ctx context.Context, job *ScheduledJob) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("marshal job params: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (id, plan_id, cron_expr, params, enabled, next_run_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.PlanID, job.CronExpr, string(params), job.Enabled, nullTime(job.NextRunAt), timeOrNow(job.CreatedAt),
	)
	if isConstraintErr(err) {
		return schema.NewErrorf(schema.ErrCodeConflict, "scheduled job %q already exists", job.ID)
	}
	return err
}

func (s *LibSQLStore) GetScheduledJob(ctx context.Context, id string) (*ScheduledJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan_id, cron_expr, params, enabled, next_run_at, last_run_at, last_run_id, created_at
		 FROM scheduled_jobs WHERE id = ?`, id)
	job, err := scanScheduledJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("scheduled job", id)
	}
	return job, err
}

func (s *LibSQLStore) ListScheduledJobs(ctx context.Context, filter ScheduledJobFilter) ([]*ScheduledJob, error) {
	query := `SELECT id, plan_id, cron_expr, params, enabled, next_run_at, last_run_at, last_run_id, created_at FROM scheduled_jobs`
	var conds []string
	var args []any

	if filter.PlanID != "" {
		conds = append(conds, "plan_id = ?")
		args = append(args, filter.PlanID)
	}
	if filter.EnabledOnly {
		conds = append(conds, "enabled = 1")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ScheduledJob
	for rows.Next() {
		job, err := scanScheduledJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *LibSQLStore) UpdateScheduledJobRun(ctx context.Context, id string, update ScheduledJobUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET last_run_at = ?, last_run_id = ?, next_run_at = ? WHERE id = ?`,
		update.LastRunAt, nullStr(update.LastRunID), nullTime(update.NextRunAt), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scheduled job", id)
}

func (s *LibSQLStore) DeleteScheduledJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scheduled job", id)
}

func scanScheduledJob(scan func(...any) error) (*ScheduledJob, error) {
	job := &ScheduledJob{}
	var params sql.NullString
	var nextRunAt, lastRunAt sql.NullTime
	var lastRunID sql.NullString
	if err := scan(&job.ID, &job.PlanID, &job.CronExpr, &params, &job.Enabled,
		&nextRunAt, &lastRunAt, &lastRunID, &job.CreatedAt); err != nil {
		return nil, err
	}
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &job.Params); err != nil {
			return nil, fmt.Errorf("unmarshal job params: %w", err)
		}
	}
	if nextRunAt.Valid {
		job.NextRunAt = &nextRunAt.Time
	}
	if lastRunAt.Valid {
		job.LastRunAt = &lastRunAt.Time
	}
	job.LastRunID = lastRunID.String
	return job, nil
}

// --- helpers ---

func storeNotFound(resource, id string) *schema.AutomationError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func isConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func jsonOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

func nullableJSON(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return string(raw), nil
}

func marshalSliceOrDefault(s []string) (json.RawMessage, error) {
	if len(s) == 0 {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(s)
}

func unmarshalSlice(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" || ns.String == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil
	}
	return out
}
