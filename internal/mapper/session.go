package mapper

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/seventech-gov/browser-use/internal/logging"
	"github.com/seventech-gov/browser-use/internal/streaming"
	"github.com/seventech-gov/browser-use/internal/surface"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

// Defaults for session configuration.
const (
	DefaultMaxSteps        = 100
	DefaultProposalTimeout = 5 * time.Minute
)

// Config bounds one mapping session.
type Config struct {
	MaxSteps        int           // proposer iterations before the session fails
	ProposalTimeout time.Duration // per-proposal deadline
}

func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.ProposalTimeout <= 0 {
		c.ProposalTimeout = DefaultProposalTimeout
	}
	return c
}

// Session owns one recording session's lifecycle. All state mutation happens
// under mu; the proposer loop runs on a single dedicated goroutine, so one
// session processes one event at a time. Every transition publishes exactly
// one event carrying the full session snapshot.
type Session struct {
	id       string
	obj      schema.Objective
	hub      streaming.EventHub
	proposer ActionProposer
	surf     surface.Surface
	logger   *slog.Logger
	cfg      Config

	mu        sync.Mutex
	status    schema.SessionStatus
	collector *Collector
	current   *schema.InputRequest
	expected  string
	errMsg    string
	createdAt time.Time
	updatedAt time.Time

	input     chan string
	runCtx    context.Context
	cancelRun context.CancelFunc
	done      chan struct{}
}

// validateObjective rejects objectives that cannot drive a session. Checked
// before any resource is acquired.
func validateObjective(obj schema.Objective) error {
	if strings.TrimSpace(obj.Description) == "" {
		return schema.NewError(schema.ErrCodeInvalidObjective, "objective description is empty")
	}
	return nil
}

// newSession validates the objective and builds a session in the started
// state. The surface is owned by the session until the run goroutine exits.
func newSession(id string, obj schema.Objective, proposer ActionProposer, surf surface.Surface, hub streaming.EventHub, logger *slog.Logger, cfg Config) (*Session, error) {
	if err := validateObjective(obj); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC()
	return &Session{
		id:        id,
		obj:       obj,
		hub:       hub,
		proposer:  proposer,
		surf:      surf,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		status:    schema.SessionStatusStarted,
		collector: NewCollector(),
		createdAt: now,
		updatedAt: now,
		input:     make(chan string, 1),
		runCtx:    runCtx,
		cancelRun: cancel,
		done:      make(chan struct{}),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed when the proposer loop has exited and the surface is released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Snapshot returns the full current session value.
func (s *Session) Snapshot() *schema.MappingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *schema.MappingSession {
	steps, params := s.collector.Snapshot()
	var req *schema.InputRequest
	if s.current != nil {
		r := *s.current
		req = &r
	}
	return &schema.MappingSession{
		SessionID:           s.id,
		Objective:           s.obj,
		Status:              s.status,
		StepsCompleted:      len(steps),
		Steps:               steps,
		CollectedParameters: params,
		CurrentInputRequest: req,
		ExpectedOutput:      s.expected,
		ErrorMessage:        s.errMsg,
		CreatedAt:           s.createdAt,
		UpdatedAt:           s.updatedAt,
	}
}

// emitLocked publishes an event with the current snapshot. Publishing under
// mu keeps the stream ordered exactly as transitions occur.
func (s *Session) emitLocked(eventType string) {
	s.hub.Publish(context.Background(), streaming.SessionEvent{
		SessionID: s.id,
		EventType: eventType,
		Session:   s.snapshotLocked(),
	})
}

// transitionLocked moves the session to a new status and emits its event.
func (s *Session) transitionLocked(to schema.SessionStatus) error {
	if !schema.IsValidSessionTransition(s.status, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid session transition: %s -> %s", s.status, to)
	}
	s.status = to
	s.updatedAt = time.Now().UTC()
	s.emitLocked(schema.EventTypeFor(to))
	return nil
}

// ProvideInput delivers a human value for the pending input request. Valid
// only while the session is waiting for input; the parameter is recorded,
// the request cleared, and the proposer loop resumed.
func (s *Session) ProvideInput(value string) error {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeSessionTerminated, "session is %s", s.status)
	}
	if s.status != schema.SessionStatusWaitingForInput {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeUnexpectedInput,
			"session is %s, not waiting for input", s.status)
	}

	req := s.current
	if err := s.collector.RecordParameter(req.FieldName, req.FieldLabel, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = nil
	if err := s.transitionLocked(schema.SessionStatusRunning); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	// Resume the proposer loop. Buffered so a cancel racing the handoff
	// can never strand this send.
	select {
	case s.input <- value:
	default:
	}
	return nil
}

// Cancel terminates the session from any non-terminal state. An in-flight
// proposer call is interrupted via context cancellation.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeSessionTerminated, "session is %s", s.status)
	}
	s.current = nil
	if err := s.transitionLocked(schema.SessionStatusCancelled); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.cancelRun()
	return nil
}

// run is the proposer loop. It owns all non-API mutation of the session and
// releases the surface on every exit path.
func (s *Session) run() {
	defer close(s.done)
	defer func() {
		if s.surf != nil {
			if err := s.surf.Close(context.Background()); err != nil {
				s.logger.Warn("release surface", slog.String("session_id", s.id), slog.String("error", err.Error()))
			}
		}
	}()

	ctx := logging.WithSessionID(s.runCtx, s.id)

	s.mu.Lock()
	if s.status != schema.SessionStatusStarted {
		s.mu.Unlock()
		return // cancelled before the loop began
	}
	if err := s.transitionLocked(schema.SessionStatusRunning); err != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.obj.StartingURL != "" {
		if err := s.surf.Navigate(ctx, s.obj.StartingURL); err != nil {
			s.fail("navigate to starting url: " + err.Error())
			return
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if s.collector.StepCount() >= s.cfg.MaxSteps {
			s.fail("objective not reached within step budget")
			return
		}

		state, err := s.surf.State(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.fail("capture page state: " + err.Error())
			return
		}

		_, collected := s.collector.Snapshot()
		pctx, cancel := context.WithTimeout(ctx, s.cfg.ProposalTimeout)
		proposal, err := s.proposer.ProposeNext(pctx, s.obj, state, collected)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.fail("proposer: " + err.Error())
			return
		}

		switch proposal.Kind {
		case ProposalStep:
			if proposal.Step == nil {
				s.fail("proposer returned step proposal without a step")
				return
			}
			step := *proposal.Step
			step.SequenceID = s.collector.StepCount()
			if err := s.applyStep(ctx, step); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.fail("apply step: " + err.Error())
				return
			}
			if !s.recordStep(step) {
				return
			}

		case ProposalInput:
			if proposal.Input == nil {
				s.fail("proposer returned input proposal without a request")
				return
			}
			if !s.awaitInput(ctx, *proposal.Input) {
				return
			}

		case ProposalDone:
			s.complete(proposal.Summary)
			return

		default:
			s.fail("proposer returned unknown proposal kind: " + string(proposal.Kind))
			return
		}
	}
}

// applyStep performs the proposed action on the live surface so that mapping
// actually walks through the task.
func (s *Session) applyStep(ctx context.Context, step schema.PlanStep) error {
	p := stepParams(step.Params)
	switch step.Action {
	case schema.ActionGoto:
		return s.surf.Navigate(ctx, p.str("url"))
	case schema.ActionClick:
		return s.surf.Click(ctx, p.str("selector"))
	case schema.ActionInput:
		return s.surf.Type(ctx, p.str("selector"), p.str("text"))
	case schema.ActionSelect:
		return s.surf.SelectOption(ctx, p.str("selector"), p.str("value"))
	case schema.ActionScroll:
		return s.surf.Scroll(ctx, p.strOr("direction", "down"), p.intOr("amount", 500))
	case schema.ActionWait:
		select {
		case <-time.After(time.Duration(p.intOr("duration_ms", 1000)) * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case schema.ActionExtract:
		_, err := s.surf.Extract(ctx, p.str("selector"))
		return err
	case schema.ActionScreenshot:
		_, err := s.surf.Screenshot(ctx)
		return err
	case schema.ActionUpload:
		return s.surf.Upload(ctx, p.str("selector"), p.str("file_path"))
	case schema.ActionDownload:
		_, _, err := s.surf.Download(ctx, p.str("selector"))
		return err
	default:
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown action %q", step.Action)
	}
}

// recordStep appends the performed step and emits a status_change event.
// Returns false when the session was terminated concurrently.
func (s *Session) recordStep(step schema.PlanStep) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != schema.SessionStatusRunning {
		return false
	}
	if err := s.collector.AppendStep(step); err != nil {
		s.errMsg = err.Error()
		_ = s.transitionLocked(schema.SessionStatusFailed)
		return false
	}
	s.updatedAt = time.Now().UTC()
	s.emitLocked(schema.EventStatusChange)
	return true
}

// awaitInput publishes the input request, suspends until ProvideInput or
// cancellation, and returns false when the session terminated while waiting.
// No timeout is imposed on the human response here.
func (s *Session) awaitInput(ctx context.Context, req schema.InputRequest) bool {
	s.mu.Lock()
	if s.status != schema.SessionStatusRunning {
		s.mu.Unlock()
		return false
	}
	s.current = &req
	if err := s.transitionLocked(schema.SessionStatusWaitingForInput); err != nil {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	select {
	case <-s.input:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) complete(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != schema.SessionStatusRunning {
		return
	}
	s.expected = summary
	s.current = nil
	_ = s.transitionLocked(schema.SessionStatusCompleted)
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.errMsg = msg
	_ = s.transitionLocked(schema.SessionStatusFailed)
}

// paramBag wraps a step's params with typed accessors.
type paramBag map[string]any

func stepParams(m map[string]any) paramBag { return paramBag(m) }

func (p paramBag) str(key string) string {
	v, _ := p[key].(string)
	return v
}

func (p paramBag) strOr(key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

func (p paramBag) intOr(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
