// Package planner compiles a completed mapping session into an immutable,
// parameterized plan. Compilation is pure: given the same session snapshot,
// two runs produce identical steps and required params, differing only in
// plan id and timestamps.
package planner

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

const maxSlugLen = 50

// Compiler turns completed mapping sessions into plans. The zero value is
// not usable; construct with New.
type Compiler struct {
	newID func() string
	now   func() time.Time
}

func New() *Compiler {
	return &Compiler{
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Compile builds a plan from a completed session. planName overrides the
// default slug-derived name when non-empty. The session is not mutated.
func (c *Compiler) Compile(session *schema.MappingSession, planName string) (*schema.Plan, error) {
	if session.Status != schema.SessionStatusCompleted {
		return nil, schema.NewErrorf(schema.ErrCodeSessionNotCompleted,
			"session %s is %s, only completed sessions compile", session.SessionID, session.Status)
	}

	name := planName
	if name == "" {
		name = Slugify(session.Objective.Description)
	}

	steps := parameterizeSteps(session.Steps, session.CollectedParameters)
	required := make([]string, 0, len(session.CollectedParameters))
	for _, p := range session.CollectedParameters {
		required = append(required, p.Name)
	}

	now := c.now()
	return &schema.Plan{
		Metadata: schema.PlanMetadata{
			PlanID:         c.newID(),
			Name:           name,
			Description:    session.Objective.Description,
			URL:            session.Objective.StartingURL,
			RequiredParams: required,
			Tags:           append([]string(nil), session.Objective.Tags...),
			ExpectedOutput: session.ExpectedOutput,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		Steps: steps,
	}, nil
}

// parameterizeSteps rewrites every step param whose string value exactly
// matches a collected parameter's recorded value into a placeholder
// reference. Original values are kept for audit. Steps are renumbered
// contiguously from zero so the compiled plan's ordering invariant holds
// independently of proposer numbering.
func parameterizeSteps(steps []schema.PlanStep, params []schema.CollectedParameter) []schema.PlanStep {
	byValue := make(map[string]string, len(params))
	for _, p := range params {
		if p.Value == "" {
			continue
		}
		// First collection wins when two parameters recorded the same value.
		if _, seen := byValue[p.Value]; !seen {
			byValue[p.Value] = p.Name
		}
	}

	out := make([]schema.PlanStep, len(steps))
	for i, step := range steps {
		compiled := schema.PlanStep{
			SequenceID:  i,
			Action:      step.Action,
			Params:      make(map[string]any, len(step.Params)),
			Description: step.Description,
		}

		rewritten := false
		original := make(map[string]any, len(step.Params))
		for key, value := range step.Params {
			original[key] = value
			s, isStr := value.(string)
			if !isStr {
				compiled.Params[key] = value
				continue
			}
			if name, ok := byValue[s]; ok {
				compiled.Params[key] = schema.Placeholder(name)
				rewritten = true
			} else {
				compiled.Params[key] = value
			}
		}
		if rewritten {
			compiled.OriginalAction = string(step.Action)
			compiled.OriginalParams = original
		}
		out[i] = compiled
	}
	return out
}

var slugStrip = regexp.MustCompile(`[^a-z0-9_ ]+`)

// Slugify derives a plan name from free-form objective text: lowercase,
// punctuation stripped, spaces collapsed to underscores, capped in length.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		return "unnamed_plan"
	}
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "_")
	}
	return s
}
