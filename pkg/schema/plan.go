package schema

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// ActionType enumerates the browser actions a plan step can perform.
type ActionType string

const (
	ActionGoto       ActionType = "goto"
	ActionClick      ActionType = "click"
	ActionInput      ActionType = "input"
	ActionSelect     ActionType = "select"
	ActionScroll     ActionType = "scroll"
	ActionWait       ActionType = "wait"
	ActionExtract    ActionType = "extract"
	ActionScreenshot ActionType = "screenshot"
	ActionDownload   ActionType = "download"
	ActionUpload     ActionType = "upload"
)

// KnownActionTypes lists every supported action, in dispatch order.
var KnownActionTypes = []ActionType{
	ActionGoto, ActionClick, ActionInput, ActionSelect, ActionScroll,
	ActionWait, ActionExtract, ActionScreenshot, ActionDownload, ActionUpload,
}

// PlanStep is a single step in an execution plan.
// SequenceID is the sole ordering key: contiguous, strictly increasing from 0.
type PlanStep struct {
	SequenceID     int            `json:"sequence_id"`
	Action         ActionType     `json:"action"`
	Params         map[string]any `json:"params,omitempty"`
	Description    string         `json:"description,omitempty"`
	OriginalAction string         `json:"original_action,omitempty"`
	OriginalParams map[string]any `json:"original_params,omitempty"`
}

// PlanMetadata describes a compiled plan.
type PlanMetadata struct {
	PlanID         string    `json:"plan_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	URL            string    `json:"url,omitempty"`
	RequiredParams []string  `json:"required_params,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	ExpectedOutput string    `json:"expected_output,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Plan is a compiled, parameterized, replayable automation.
// Plans are immutable once compiled; re-mapping produces a new plan.
type Plan struct {
	Metadata PlanMetadata `json:"metadata"`
	Steps    []PlanStep   `json:"steps"`
}

// TotalSteps returns the number of steps in the plan.
func (p *Plan) TotalSteps() int { return len(p.Steps) }

// placeholderPattern matches {param:name} references inside step param values.
var placeholderPattern = regexp.MustCompile(`\{param:([A-Za-z0-9_]+)\}`)

// Placeholder returns the placeholder reference for a parameter name.
func Placeholder(name string) string {
	return fmt.Sprintf("{param:%s}", name)
}

// PlaceholderRefs returns the parameter names referenced by placeholders in s,
// in order of appearance.
func PlaceholderRefs(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// SubstitutePlaceholders replaces every {param:name} reference in s with the
// matching value. References without a matching value are left untouched.
func SubstitutePlaceholders(s string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := placeholderPattern.FindStringSubmatch(ref)[1]
		if v, ok := values[name]; ok {
			return v
		}
		return ref
	})
}

// ReferencedParams scans all step params and returns the set of parameter
// names referenced by placeholders, in first-appearance order. Param keys are
// visited sorted so the result is stable.
func (p *Plan) ReferencedParams() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, step := range p.Steps {
		keys := make([]string, 0, len(step.Params))
		for k := range step.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s, ok := step.Params[k].(string)
			if !ok {
				continue
			}
			for _, name := range PlaceholderRefs(s) {
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	return names
}
