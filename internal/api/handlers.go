package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/seventech-gov/browser-use/internal/store"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

// --- Mapping sessions ---

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Objective schema.Objective `json:"objective"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.deps.Sessions.Start(r.Context(), req.Objective)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.deps.Sessions.List(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleProvideInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.deps.Sessions.ProvideInput(r.PathValue("id"), req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Sessions.Cancel(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionLog(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	events, err := s.deps.Store.GetSessionEvents(r.Context(), r.PathValue("id"), since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// --- Plan compilation and CRUD ---

func (s *Server) handleCompilePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	session, err := s.deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := s.deps.Compiler.Compile(session, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Validator.ValidatePlan(plan); err != nil {
		writeError(w, err)
		return
	}

	rec, err := store.NewPlanRecord(plan)
	if err != nil {
		writeError(w, schema.NewError(schema.ErrCodeStore, "encode plan").WithCause(err))
		return
	}
	if err := s.deps.Store.SavePlan(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}

	s.deps.Logger.Info("plan compiled",
		slog.String("session_id", session.SessionID),
		slog.String("plan_id", plan.Metadata.PlanID),
		slog.String("name", plan.Metadata.Name))
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Store.ListPlans(r.Context(), store.PlanFilter{
		Tag:   r.URL.Query().Get("tag"),
		Name:  r.URL.Query().Get("name"),
		Limit: queryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	plans := make([]*schema.Plan, 0, len(records))
	for _, rec := range records {
		plan, err := rec.Plan()
		if err != nil {
			writeError(w, schema.NewError(schema.ErrCodeStore, "decode stored plan").WithCause(err))
			return
		}
		plans = append(plans, plan)
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Store.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := rec.Plan()
	if err != nil {
		writeError(w, schema.NewError(schema.ErrCodeStore, "decode stored plan").WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeletePlan(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Execution ---

func (s *Server) handleExecutePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Params map[string]string `json:"params,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := s.deps.Executions.ExecutePlan(r.Context(), r.PathValue("id"), req.Params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Store.ListExecutions(r.Context(), store.ExecutionFilter{
		PlanID: r.URL.Query().Get("plan_id"),
		Status: schema.ExecutionStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]*schema.ExecutionResult, 0, len(records))
	for _, rec := range records {
		result, err := rec.Result()
		if err != nil {
			writeError(w, schema.NewError(schema.ErrCodeStore, "decode stored execution").WithCause(err))
			return
		}
		results = append(results, result)
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": results})
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Store.GetExecution(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := rec.Result()
	if err != nil {
		writeError(w, schema.NewError(schema.ErrCodeStore, "decode stored execution").WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Scheduled replays ---

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID   string            `json:"plan_id"`
		CronExpr string            `json:"cron_expr"`
		Params   map[string]string `json:"params,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// The plan must exist before a replay can be scheduled against it.
	if _, err := s.deps.Store.GetPlan(r.Context(), req.PlanID); err != nil {
		writeError(w, err)
		return
	}

	job := &store.ScheduledJob{
		ID:       uuid.NewString(),
		PlanID:   req.PlanID,
		CronExpr: req.CronExpr,
		Params:   req.Params,
		Enabled:  true,
	}
	if err := s.deps.Scheduler.Register(r.Context(), job); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Store.ListScheduledJobs(r.Context(), store.ScheduledJobFilter{
		PlanID: r.URL.Query().Get("plan_id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": jobs})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Store.GetScheduledJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteScheduledJob(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
