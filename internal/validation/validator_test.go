package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

func validPlan() *schema.Plan {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &schema.Plan{
		Metadata: schema.PlanMetadata{
			PlanID:         "plan-1",
			Name:           "consultar_multas",
			RequiredParams: []string{"plate"},
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		Steps: []schema.PlanStep{
			{SequenceID: 0, Action: schema.ActionGoto, Params: map[string]any{"url": "https://example.gov.br"}},
			{SequenceID: 1, Action: schema.ActionInput, Params: map[string]any{"selector": "#plate", "text": "{param:plate}"}},
			{SequenceID: 2, Action: schema.ActionExtract, Params: map[string]any{"selector": ".result"}},
		},
	}
}

func newValidator(t *testing.T) *PlanValidator {
	t.Helper()
	v, err := NewPlanValidator()
	require.NoError(t, err)
	return v
}

func TestValidatePlanAcceptsValidPlan(t *testing.T) {
	require.NoError(t, newValidator(t).ValidatePlan(validPlan()))
}

func TestValidatePlanRejectsNil(t *testing.T) {
	err := newValidator(t).ValidatePlan(nil)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestValidatePlanRejectsUnknownAction(t *testing.T) {
	plan := validPlan()
	plan.Steps[0].Action = "hover"

	err := newValidator(t).ValidatePlan(plan)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestValidatePlanRejectsEmptyPlanID(t *testing.T) {
	plan := validPlan()
	plan.Metadata.PlanID = ""

	err := newValidator(t).ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidatePlanRejectsEmptySteps(t *testing.T) {
	plan := validPlan()
	plan.Steps = nil

	err := newValidator(t).ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidatePlanRejectsNonContiguousSequenceIDs(t *testing.T) {
	plan := validPlan()
	plan.Steps[2].SequenceID = 5

	err := newValidator(t).ValidatePlan(plan)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestValidatePlanRejectsUnboundPlaceholder(t *testing.T) {
	plan := validPlan()
	plan.Steps[1].Params["text"] = "{param:cpf}"

	err := newValidator(t).ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidatePlanRejectsDuplicateRequiredParams(t *testing.T) {
	plan := validPlan()
	plan.Metadata.RequiredParams = []string{"plate", "plate"}

	err := newValidator(t).ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidateSemanticWarnsOnUnreferencedParam(t *testing.T) {
	plan := validPlan()
	plan.Metadata.RequiredParams = []string{"plate", "cpf"}

	result := validateSemantic(plan)
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "cpf")
}
