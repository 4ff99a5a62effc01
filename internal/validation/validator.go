// Package validation checks compiled plans before they are stored or
// executed. A plan goes through two stages: structural validation against a
// JSON Schema, then semantic analysis for the invariants JSON Schema cannot
// express (sequence contiguity, placeholder/required_params agreement).
package validation

import "github.com/seventech-gov/browser-use/pkg/schema"

// Validator checks plans for correctness before persistence and execution.
type Validator interface {
	ValidatePlan(plan *schema.Plan) error
}
