// Package api exposes the system over HTTP: mapping session control, plan
// compilation and CRUD, plan execution, execution history, scheduled replays,
// and live session streams via Server-Sent Events.
package api

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/seventech-gov/browser-use/internal/executor"
	"github.com/seventech-gov/browser-use/internal/mapper"
	"github.com/seventech-gov/browser-use/internal/planner"
	"github.com/seventech-gov/browser-use/internal/scheduler"
	"github.com/seventech-gov/browser-use/internal/store"
	"github.com/seventech-gov/browser-use/internal/streaming"
	"github.com/seventech-gov/browser-use/internal/validation"
)

// Deps holds the dependencies for the API server.
type Deps struct {
	Sessions   *mapper.Registry
	Compiler   *planner.Compiler
	Validator  validation.Validator
	Executions *executor.Service
	Store      store.Store
	Hub        streaming.EventHub
	Scheduler  *scheduler.Scheduler
	Logger     *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for all API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Mapping sessions
	mux.HandleFunc("POST /api/v1/mapping/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/v1/mapping/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/v1/mapping/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/v1/mapping/sessions/{id}/input", s.handleProvideInput)
	mux.HandleFunc("POST /api/v1/mapping/sessions/{id}/cancel", s.handleCancelSession)
	mux.HandleFunc("DELETE /api/v1/mapping/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/v1/mapping/sessions/{id}/events", s.handleSessionEvents)
	mux.HandleFunc("GET /api/v1/mapping/sessions/{id}/log", s.handleSessionLog)
	mux.HandleFunc("POST /api/v1/mapping/sessions/{id}/compile", s.handleCompilePlan)

	// Plans
	mux.HandleFunc("GET /api/v1/plans", s.handleListPlans)
	mux.HandleFunc("GET /api/v1/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("DELETE /api/v1/plans/{id}", s.handleDeletePlan)
	mux.HandleFunc("POST /api/v1/plans/{id}/execute", s.handleExecutePlan)

	// Executions
	mux.HandleFunc("GET /api/v1/executions", s.handleListExecutions)
	mux.HandleFunc("GET /api/v1/executions/{id}", s.handleGetExecution)

	// Scheduled replays
	mux.HandleFunc("POST /api/v1/schedules", s.handleCreateSchedule)
	mux.HandleFunc("GET /api/v1/schedules", s.handleListSchedules)
	mux.HandleFunc("GET /api/v1/schedules/{id}", s.handleGetSchedule)
	mux.HandleFunc("DELETE /api/v1/schedules/{id}", s.handleDeleteSchedule)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
