package mapper

import (
	"sync"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// Collector accumulates recorded steps and user-supplied parameter values
// during one mapping session. Safe for concurrent use, though each session
// mutates its collector from a single goroutine.
type Collector struct {
	mu     sync.Mutex
	steps  []schema.PlanStep
	params []schema.CollectedParameter
	byName map[string]int // name -> index into params
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{byName: make(map[string]int)}
}

// AppendStep records the next step. The step's SequenceID must be exactly one
// more than the previous step's (0 for the first); anything else fails with
// ORDERING_ERROR and records nothing.
func (c *Collector) AppendStep(step schema.PlanStep) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	want := len(c.steps)
	if step.SequenceID != want {
		return schema.NewErrorf(schema.ErrCodeOrdering,
			"expected sequence_id %d, got %d", want, step.SequenceID).
			WithDetails(map[string]any{"expected": want, "got": step.SequenceID})
	}
	c.steps = append(c.steps, step)
	return nil
}

// RecordParameter records a user-supplied value. Recording the same name with
// the same label replaces the value; the same name with a different label
// fails with DUPLICATE_PARAMETER.
func (c *Collector) RecordParameter(name, label, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.byName[name]; ok {
		if c.params[idx].Label != label {
			return schema.NewErrorf(schema.ErrCodeDuplicateParameter,
				"parameter %q already recorded with label %q", name, c.params[idx].Label).
				WithDetails(map[string]any{"name": name, "existing_label": c.params[idx].Label})
		}
		c.params[idx].Value = value
		return nil
	}

	c.byName[name] = len(c.params)
	c.params = append(c.params, schema.CollectedParameter{Name: name, Label: label, Value: value})
	return nil
}

// StepCount returns the number of recorded steps.
func (c *Collector) StepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// Snapshot returns deep copies of the accumulated steps and parameters.
// Insertion order is preserved; the collector is not modified.
func (c *Collector) Snapshot() ([]schema.PlanStep, []schema.CollectedParameter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	steps := make([]schema.PlanStep, len(c.steps))
	for i, s := range c.steps {
		steps[i] = s
		steps[i].Params = copyParams(s.Params)
		steps[i].OriginalParams = copyParams(s.OriginalParams)
	}

	params := make([]schema.CollectedParameter, len(c.params))
	copy(params, c.params)
	return steps, params
}

func copyParams(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
