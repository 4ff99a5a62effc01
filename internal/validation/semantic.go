package validation

import (
	"fmt"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// validateSemantic performs the plan-level checks JSON Schema cannot express:
// sequence_id contiguity, required_params uniqueness, and agreement between
// placeholders and required_params.
func validateSemantic(plan *schema.Plan) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	// sequence_id values must be contiguous and strictly increasing from 0.
	for i, step := range plan.Steps {
		if step.SequenceID != i {
			result.AddError(fmt.Sprintf("steps[%d].sequence_id", i), schema.ErrCodeOrdering,
				fmt.Sprintf("expected sequence_id %d, got %d", i, step.SequenceID))
		}
	}

	// required_params entries must be unique.
	required := make(map[string]bool, len(plan.Metadata.RequiredParams))
	for i, name := range plan.Metadata.RequiredParams {
		if required[name] {
			result.AddError(fmt.Sprintf("metadata.required_params[%d]", i),
				schema.ErrCodeDuplicateParameter,
				fmt.Sprintf("parameter %q listed more than once", name))
			continue
		}
		required[name] = true
	}

	// Every placeholder referenced by a step must resolve to a required param.
	referenced := make(map[string]bool)
	for _, name := range plan.ReferencedParams() {
		referenced[name] = true
		if !required[name] {
			result.AddError("steps", schema.ErrCodeValidation,
				fmt.Sprintf("placeholder {param:%s} has no matching required parameter", name))
		}
	}

	// A declared parameter no step references is almost always a compile bug;
	// flag it without rejecting the plan.
	for _, name := range plan.Metadata.RequiredParams {
		if !referenced[name] {
			result.AddWarning("metadata.required_params", schema.ErrCodeValidation,
				fmt.Sprintf("parameter %q is never referenced by any step", name))
		}
	}

	return result
}
