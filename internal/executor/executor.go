// Package executor replays compiled plans against fresh parameters. A replay
// is fully deterministic given the plan, the parameters and the surface: no
// proposer is involved, steps run strictly in sequence order, and every run
// finalizes exactly one ExecutionResult even on partial failure.
package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/seventech-gov/browser-use/internal/extract"
	"github.com/seventech-gov/browser-use/internal/logging"
	"github.com/seventech-gov/browser-use/internal/surface"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultMaxRetries  = 1
	DefaultRetryDelay  = time.Second
	DefaultStepTimeout = 10 * time.Second
)

// Config tunes one engine instance. The zero value means defaults.
type Config struct {
	Retry             RetryPolicy   `json:"retry"`
	StepTimeout       time.Duration `json:"step_timeout"`
	FailFast          bool          `json:"fail_fast"`
	SaveScreenshots   bool          `json:"save_screenshots"`
	ScreenshotOnError bool          `json:"screenshot_on_error"`
}

func (c Config) withDefaults() Config {
	if c.Retry.MaxRetries == 0 && c.Retry.Delay == 0 {
		c.Retry = RetryPolicy{MaxRetries: DefaultMaxRetries, Delay: DefaultRetryDelay, Backoff: "constant"}
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = DefaultStepTimeout
	}
	return c
}

// Engine executes plans. One engine serves many executions; each execution
// acquires its own surface.
type Engine struct {
	factory surface.Factory
	filters *extract.Engine
	logger  *slog.Logger
	cfg     Config

	newID func() string
	now   func() time.Time
}

func New(factory surface.Factory, filters *extract.Engine, logger *slog.Logger, cfg Config) *Engine {
	return &Engine{
		factory: factory,
		filters: filters,
		logger:  logger,
		cfg:     cfg.withDefaults(),
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Execute replays plan with the given parameter values.
//
// Parameter validation happens before any side effect: when params does not
// cover required_params the call fails with MISSING_PARAMETER, no surface is
// acquired and no action is dispatched. All later failures are reported
// through the result's status instead of an error return.
func (e *Engine) Execute(ctx context.Context, plan *schema.Plan, params map[string]string) (*schema.ExecutionResult, error) {
	if missing := missingParams(plan.Metadata.RequiredParams, params); len(missing) > 0 {
		return nil, schema.NewErrorf(schema.ErrCodeMissingParameter,
			"missing required parameters: %v", missing).
			WithDetails(map[string]any{"names": missing})
	}

	executionID := e.newID()
	ctx = logging.WithExecutionID(logging.WithPlanID(ctx, plan.Metadata.PlanID), executionID)

	result := &schema.ExecutionResult{
		ExecutionID: executionID,
		PlanID:      plan.Metadata.PlanID,
		TotalSteps:  plan.TotalSteps(),
		Metadata: map[string]any{
			"plan_name": plan.Metadata.Name,
		},
	}

	// Wall clock runs from first step dispatch to result finalization;
	// surface acquisition is excluded.
	var start time.Time
	defer func() {
		if !start.IsZero() {
			result.ExecutionTimeMs = e.now().Sub(start).Milliseconds()
		}
	}()

	surf, err := e.factory.Acquire(ctx)
	if err != nil {
		result.Status = schema.ExecutionError
		result.ErrorMessage = fmt.Sprintf("acquire surface: %s", err.Error())
		e.logger.Error("execution aborted before first step",
			slog.String("execution_id", executionID), slog.String("error", err.Error()))
		return result, nil
	}
	defer func() {
		if cerr := surf.Close(context.Background()); cerr != nil {
			e.logger.Warn("release surface", slog.String("execution_id", executionID), slog.String("error", cerr.Error()))
		}
	}()

	steps := make([]schema.PlanStep, len(plan.Steps))
	copy(steps, plan.Steps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].SequenceID < steps[j].SequenceID })

	start = e.now()
	for _, step := range steps {
		stepCtx := logging.WithStep(ctx, step.SequenceID)
		resolved := substituteParams(step.Params, params)

		artifacts, stepErr := e.runStepWithRetry(stepCtx, surf, step, resolved)
		if stepErr != nil {
			e.finalizeFailure(stepCtx, surf, result, step, stepErr)
			return result, nil
		}

		result.Artifacts = append(result.Artifacts, artifacts...)
		result.StepsCompleted++
		e.logger.Debug("step completed",
			slog.Int("sequence_id", step.SequenceID),
			slog.String("action", string(step.Action)))

		if e.cfg.SaveScreenshots && step.Action != schema.ActionScreenshot {
			if shot := e.stepScreenshot(stepCtx, surf, step); shot != nil {
				result.Artifacts = append(result.Artifacts, *shot)
			}
		}
	}

	result.Status = schema.ExecutionSuccess
	return result, nil
}

// finalizeFailure classifies a step failure into the result status, keeping
// every artifact collected before the failure. The failed step itself
// contributes at most an error screenshot.
func (e *Engine) finalizeFailure(ctx context.Context, surf surface.Surface, result *schema.ExecutionResult, step schema.PlanStep, stepErr error) {
	result.ErrorMessage = fmt.Sprintf("step %d (%s): %s", step.SequenceID, step.Action, stepErr.Error())
	result.Metadata["failed_step"] = step.SequenceID

	switch {
	case errors.Is(stepErr, context.DeadlineExceeded) || schema.IsCode(stepErr, schema.ErrCodeTimeout):
		result.Status = schema.ExecutionTimeout
	case result.StepsCompleted > 0 && !e.cfg.FailFast:
		result.Status = schema.ExecutionPartialSuccess
	default:
		result.Status = schema.ExecutionFailure
	}

	e.logger.Error("step failed",
		slog.Int("sequence_id", step.SequenceID),
		slog.String("action", string(step.Action)),
		slog.String("status", string(result.Status)),
		slog.String("error", stepErr.Error()))

	if !e.cfg.ScreenshotOnError {
		return
	}
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StepTimeout)
	defer cancel()
	png, err := surf.Screenshot(shotCtx)
	if err != nil {
		e.logger.Warn("error screenshot failed", slog.String("error", err.Error()))
		return
	}
	result.Artifacts = append(result.Artifacts, e.binaryArtifact(
		schema.ArtifactScreenshot,
		fmt.Sprintf("step_%03d_error_screenshot.png", step.SequenceID),
		png,
		map[string]any{"sequence_id": step.SequenceID, "on_error": true},
	))
}

// stepScreenshot captures an after-step screenshot. Capture failures are
// logged, never fatal.
func (e *Engine) stepScreenshot(ctx context.Context, surf surface.Surface, step schema.PlanStep) *schema.Artifact {
	shotCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
	defer cancel()
	png, err := surf.Screenshot(shotCtx)
	if err != nil {
		e.logger.Warn("step screenshot failed",
			slog.Int("sequence_id", step.SequenceID), slog.String("error", err.Error()))
		return nil
	}
	shot := e.binaryArtifact(
		schema.ArtifactScreenshot,
		fmt.Sprintf("step_%03d_screenshot.png", step.SequenceID),
		png,
		map[string]any{"sequence_id": step.SequenceID},
	)
	return &shot
}

// runStepWithRetry performs one step, retrying per policy. Each attempt gets
// a fresh per-step timeout; the final attempt's error is returned verbatim.
func (e *Engine) runStepWithRetry(ctx context.Context, surf surface.Surface, step schema.PlanStep, params map[string]any) ([]schema.Artifact, error) {
	policy := e.cfg.Retry
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForBackoff(ctx, computeBackoff(policy, attempt-1)); err != nil {
				return nil, lastErr
			}
			e.logger.Warn("retrying step",
				slog.Int("sequence_id", step.SequenceID),
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()))
		}

		stepCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
		artifacts, err := e.performStep(stepCtx, surf, step, params)
		cancel()
		if err == nil {
			return artifacts, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// performStep dispatches one action to the surface and converts its output
// into artifacts.
func (e *Engine) performStep(ctx context.Context, surf surface.Surface, step schema.PlanStep, params map[string]any) ([]schema.Artifact, error) {
	p := paramBag(params)

	switch step.Action {
	case schema.ActionGoto:
		return nil, surf.Navigate(ctx, p.str("url"))

	case schema.ActionClick:
		return nil, surf.Click(ctx, p.str("selector"))

	case schema.ActionInput:
		return nil, surf.Type(ctx, p.str("selector"), p.str("text"))

	case schema.ActionSelect:
		return nil, surf.SelectOption(ctx, p.str("selector"), p.str("value"))

	case schema.ActionScroll:
		return nil, surf.Scroll(ctx, p.strOr("direction", "down"), p.intOr("amount", 500))

	case schema.ActionWait:
		select {
		case <-time.After(time.Duration(p.intOr("duration_ms", 1000)) * time.Millisecond):
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}

	case schema.ActionExtract:
		raw, err := surf.Extract(ctx, p.str("selector"))
		if err != nil {
			return nil, err
		}
		return e.extractArtifact(ctx, step, p, raw)

	case schema.ActionScreenshot:
		png, err := surf.Screenshot(ctx)
		if err != nil {
			return nil, err
		}
		return []schema.Artifact{e.binaryArtifact(
			schema.ArtifactScreenshot,
			fmt.Sprintf("step_%03d_screenshot.png", step.SequenceID),
			png,
			map[string]any{"sequence_id": step.SequenceID},
		)}, nil

	case schema.ActionDownload:
		data, filename, err := surf.Download(ctx, p.str("selector"))
		if err != nil {
			return nil, err
		}
		if filename == "" {
			filename = fmt.Sprintf("step_%03d_download", step.SequenceID)
		}
		return []schema.Artifact{e.binaryArtifact(
			schema.ArtifactFile,
			filename,
			data,
			map[string]any{"sequence_id": step.SequenceID},
		)}, nil

	case schema.ActionUpload:
		return nil, surf.Upload(ctx, p.str("selector"), p.str("file_path"))

	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown action %q", step.Action)
	}
}

// extractArtifact applies the step's optional jq filter and wraps the result.
// Filtered non-string values become json artifacts; everything else is text.
func (e *Engine) extractArtifact(ctx context.Context, step schema.PlanStep, p paramBag, raw string) ([]schema.Artifact, error) {
	value, err := e.filters.Apply(ctx, p.str("filter"), raw)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"sequence_id": step.SequenceID}
	if sel := p.str("selector"); sel != "" {
		meta["selector"] = sel
	}

	if s, ok := value.(string); ok {
		return []schema.Artifact{{
			ArtifactID: e.newID(),
			Type:       schema.ArtifactText,
			Name:       fmt.Sprintf("step_%03d_extract.txt", step.SequenceID),
			Content:    s,
			Metadata:   meta,
		}}, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "encode extracted value").WithCause(err)
	}
	return []schema.Artifact{{
		ArtifactID: e.newID(),
		Type:       schema.ArtifactJSON,
		Name:       fmt.Sprintf("step_%03d_extract.json", step.SequenceID),
		Content:    string(encoded),
		Metadata:   meta,
	}}, nil
}

func (e *Engine) binaryArtifact(t schema.ArtifactType, name string, data []byte, meta map[string]any) schema.Artifact {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["encoding"] = "base64"
	meta["size_bytes"] = len(data)
	return schema.Artifact{
		ArtifactID: e.newID(),
		Type:       t,
		Name:       name,
		Content:    base64.StdEncoding.EncodeToString(data),
		Metadata:   meta,
	}
}

// paramBag gives typed access to resolved step params.
type paramBag map[string]any

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
