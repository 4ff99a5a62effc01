package mapper

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/seventech-gov/browser-use/internal/streaming"
	"github.com/seventech-gov/browser-use/internal/surface"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

// Registry owns the live mapping sessions. It acquires one surface per
// session, runs each session on its own goroutine, and is the only component
// that holds *Session values; everything outward-facing works with
// schema.MappingSession snapshots.
type Registry struct {
	factory  surface.Factory
	proposer ActionProposer
	hub      streaming.EventHub
	logger   *slog.Logger
	cfg      Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(factory surface.Factory, proposer ActionProposer, hub streaming.EventHub, logger *slog.Logger, cfg Config) *Registry {
	return &Registry{
		factory:  factory,
		proposer: proposer,
		hub:      hub,
		logger:   logger,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Start validates the objective, acquires a surface and launches the
// proposer loop. The returned snapshot is in the started state; progress is
// observable via Get and the event hub.
func (r *Registry) Start(ctx context.Context, obj schema.Objective) (*schema.MappingSession, error) {
	// Reject bad objectives before a browser is launched for them.
	if err := validateObjective(obj); err != nil {
		return nil, err
	}

	id := uuid.NewString()

	surf, err := r.factory.Acquire(ctx)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeSurface, "acquire surface").WithCause(err)
	}

	s, err := newSession(id, obj, r.proposer, surf, r.hub, r.logger, r.cfg)
	if err != nil {
		if cerr := surf.Close(ctx); cerr != nil {
			r.logger.Warn("release surface after rejected session", slog.String("error", cerr.Error()))
		}
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("mapping session started",
		slog.String("session_id", id),
		slog.String("objective", obj.Description))
	go s.run()

	return s.Snapshot(), nil
}

// Get returns the current snapshot of a session.
func (r *Registry) Get(sessionID string) (*schema.MappingSession, error) {
	s, err := r.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// List returns snapshots of all known sessions, newest first.
func (r *Registry) List() []*schema.MappingSession {
	r.mu.RLock()
	out := make([]*schema.MappingSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// ProvideInput delivers a human-supplied value to a waiting session.
func (r *Registry) ProvideInput(sessionID, value string) (*schema.MappingSession, error) {
	s, err := r.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ProvideInput(value); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Cancel terminates a session. Cancelling a terminal session is an error.
func (r *Registry) Cancel(sessionID string) (*schema.MappingSession, error) {
	s, err := r.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Cancel(); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Delete removes a terminal session from the registry. Active sessions must
// be cancelled first.
func (r *Registry) Delete(sessionID string) error {
	s, err := r.session(sessionID)
	if err != nil {
		return err
	}
	if !s.Snapshot().Status.Terminal() {
		return schema.NewErrorf(schema.ErrCodeConflict, "session %s is still active", sessionID)
	}

	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	return nil
}

// Close cancels every active session and waits for their loops to exit.
func (r *Registry) Close() {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		if err := s.Cancel(); err != nil && !schema.IsCode(err, schema.ErrCodeSessionTerminated) {
			r.logger.Warn("cancel session on shutdown",
				slog.String("session_id", s.ID()), slog.String("error", err.Error()))
		}
	}
	for _, s := range all {
		<-s.Done()
	}
}

func (r *Registry) session(sessionID string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "session %s not found", sessionID)
	}
	return s, nil
}
