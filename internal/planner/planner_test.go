package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

func fixedCompiler(id string, ts time.Time) *Compiler {
	return &Compiler{
		newID: func() string { return id },
		now:   func() time.Time { return ts },
	}
}

func completedSession() *schema.MappingSession {
	return &schema.MappingSession{
		SessionID: "sess-1",
		Objective: schema.Objective{
			Description: "Consultar multas do veículo",
			StartingURL: "https://example.gov.br/multas",
			Tags:        []string{"detran"},
		},
		Status:         schema.SessionStatusCompleted,
		ExpectedOutput: "list of fines",
		Steps: []schema.PlanStep{
			{SequenceID: 0, Action: schema.ActionGoto, Params: map[string]any{"url": "https://example.gov.br/multas"}},
			{SequenceID: 1, Action: schema.ActionInput, Params: map[string]any{"selector": "#plate", "text": "ABC1D23"}},
			{SequenceID: 2, Action: schema.ActionClick, Params: map[string]any{"selector": "#consultar"}},
			{SequenceID: 3, Action: schema.ActionExtract, Params: map[string]any{"selector": ".result"}},
		},
		CollectedParameters: []schema.CollectedParameter{
			{Name: "plate", Label: "Placa do veículo", Value: "ABC1D23"},
		},
	}
}

func TestCompileRejectsNonCompletedSession(t *testing.T) {
	session := completedSession()
	session.Status = schema.SessionStatusRunning

	_, err := New().Compile(session, "")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeSessionNotCompleted))
}

func TestCompileParameterizesExactValueMatches(t *testing.T) {
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	plan, err := fixedCompiler("plan-1", ts).Compile(completedSession(), "")
	require.NoError(t, err)

	assert.Equal(t, "plan-1", plan.Metadata.PlanID)
	assert.Equal(t, "consultar_multas_do_veculo", plan.Metadata.Name)
	assert.Equal(t, []string{"plate"}, plan.Metadata.RequiredParams)
	assert.Equal(t, "list of fines", plan.Metadata.ExpectedOutput)
	assert.Equal(t, ts, plan.Metadata.CreatedAt)
	require.Len(t, plan.Steps, 4)

	// Step 1 typed the collected value, so it becomes a placeholder with the
	// original kept for audit.
	input := plan.Steps[1]
	assert.Equal(t, "{param:plate}", input.Params["text"])
	assert.Equal(t, "#plate", input.Params["selector"])
	require.NotNil(t, input.OriginalParams)
	assert.Equal(t, "ABC1D23", input.OriginalParams["text"])

	// Untouched steps carry no audit copy.
	assert.Nil(t, plan.Steps[0].OriginalParams)
	assert.Nil(t, plan.Steps[2].OriginalParams)
}

func TestCompileIsDeterministicModuloIDAndTimestamps(t *testing.T) {
	session := completedSession()
	a, err := fixedCompiler("id-a", time.Unix(100, 0).UTC()).Compile(session, "")
	require.NoError(t, err)
	b, err := fixedCompiler("id-b", time.Unix(200, 0).UTC()).Compile(session, "")
	require.NoError(t, err)

	assert.Equal(t, a.Steps, b.Steps)
	assert.Equal(t, a.Metadata.RequiredParams, b.Metadata.RequiredParams)
	assert.Equal(t, a.Metadata.Name, b.Metadata.Name)
	assert.NotEqual(t, a.Metadata.PlanID, b.Metadata.PlanID)
}

func TestCompileReferencedParamsRoundTrip(t *testing.T) {
	plan, err := New().Compile(completedSession(), "")
	require.NoError(t, err)

	// Scanning the compiled steps for placeholders reproduces required_params.
	assert.Equal(t, plan.Metadata.RequiredParams, plan.ReferencedParams())
}

func TestCompileExplicitNameWins(t *testing.T) {
	plan, err := New().Compile(completedSession(), "multas_detran")
	require.NoError(t, err)
	assert.Equal(t, "multas_detran", plan.Metadata.Name)
}

func TestCompileNoParametersYieldsEmptyRequired(t *testing.T) {
	session := completedSession()
	session.CollectedParameters = nil

	plan, err := New().Compile(session, "")
	require.NoError(t, err)
	assert.Empty(t, plan.Metadata.RequiredParams)
	assert.Equal(t, "ABC1D23", plan.Steps[1].Params["text"])
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "check_vehicle_fines", Slugify("Check vehicle fines!"))
	assert.Equal(t, "unnamed_plan", Slugify("???"))
	long := Slugify("a very long objective description that keeps going well past the cap on plan names")
	assert.LessOrEqual(t, len(long), 50)
}
