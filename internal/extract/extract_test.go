package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

func TestApplyEmptyFilterPassesThrough(t *testing.T) {
	out, err := NewEngine().Apply(context.Background(), "", "raw text")
	require.NoError(t, err)
	assert.Equal(t, "raw text", out)
}

func TestApplyFilterOverJSONContent(t *testing.T) {
	content := `{"fines": [{"amount": 120.5}, {"amount": 88.0}]}`
	out, err := NewEngine().Apply(context.Background(), "[.fines[].amount] | add", content)
	require.NoError(t, err)
	assert.Equal(t, 208.5, out)
}

func TestApplyWrapsPlainTextContent(t *testing.T) {
	out, err := NewEngine().Apply(context.Background(), ".text | ascii_upcase", "hello")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out)
}

func TestApplyMultipleOutputsCollected(t *testing.T) {
	out, err := NewEngine().Apply(context.Background(), ".items[]", `{"items": [1, 2]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, out)
}

func TestApplyParseError(t *testing.T) {
	_, err := NewEngine().Apply(context.Background(), ".[ broken", "{}")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestApplyReusesCompiledFilter(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 3; i++ {
		out, err := e.Apply(context.Background(), ".text", "x")
		require.NoError(t, err)
		assert.Equal(t, "x", out)
	}
	assert.Len(t, e.cache, 1)
}
