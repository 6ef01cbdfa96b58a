package supervisor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/coordflow/testutil"
	"github.com/BaSui01/coordflow/testutil/mocks"
	"github.com/BaSui01/coordflow/types"
)

const goodBreakdownJSON = `{
	"complexity": "medium",
	"primary_agent": "data_analyst",
	"subtasks": [
		{"id": "task_1", "description": "pull revenue rows", "agent": "data_analyst", "dependencies": [], "priority": 1},
		{"id": "task_2", "description": "compute trend", "agent": "data_analyst", "dependencies": ["task_1"], "priority": 2}
	],
	"expected_output": "trend report"
}`

func TestDecomposeParsesStructuredOutput(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse(goodBreakdownJSON)
	d := NewDecomposer(provider, "test-model", nil)

	b, err := d.Decompose(testutil.TestContext(t), "revenue trend")
	require.NoError(t, err)
	assert.Equal(t, types.ComplexityMedium, b.Complexity)
	assert.Equal(t, types.WorkerAnalyst, b.PrimaryAgent)
	require.Len(t, b.Subtasks, 2)
	assert.Equal(t, []string{"task_1"}, b.Subtasks[1].Dependencies)
}

func TestDecomposeParsesFencedOutput(t *testing.T) {
	provider := mocks.NewMockProvider().
		WithResponse("Here is the breakdown:\n```json\n" + goodBreakdownJSON + "\n```\nDone.")
	d := NewDecomposer(provider, "test-model", nil)

	b, err := d.Decompose(testutil.TestContext(t), "revenue trend")
	require.NoError(t, err)
	assert.Equal(t, types.WorkerAnalyst, b.PrimaryAgent)
	require.Len(t, b.Subtasks, 2)
}

func TestDecomposeFallbackOnNonJSON(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("I think this needs a data analyst, roughly.")
	d := NewDecomposer(provider, "test-model", nil)

	query := "analyze quarterly sales trend"
	b, err := d.Decompose(testutil.TestContext(t), query)
	require.NoError(t, err)

	// Deterministic single-subtask degradation.
	assert.Equal(t, types.ComplexitySimple, b.Complexity)
	assert.Equal(t, Classify(query), b.PrimaryAgent)
	require.Len(t, b.Subtasks, 1)
	st := b.Subtasks[0]
	assert.Equal(t, "main_task", st.ID)
	assert.Equal(t, query, st.Description)
	assert.Equal(t, Classify(query), st.Agent)
	assert.Empty(t, st.Dependencies)
	assert.Equal(t, 1, st.Priority)
	assert.Equal(t, "Direct response to user query", b.ExpectedOutput)
}

func TestDecomposeFallbackOnSchemaViolation(t *testing.T) {
	// Parseable JSON, but the agent name is outside the worker enum: the
	// strict schema boundary rejects it and the fallback applies.
	provider := mocks.NewMockProvider().WithResponse(`{
		"complexity": "simple",
		"primary_agent": "research_wizard",
		"subtasks": [{"id": "t1", "description": "x", "agent": "research_wizard", "dependencies": [], "priority": 1}],
		"expected_output": "y"
	}`)
	d := NewDecomposer(provider, "test-model", nil)

	b, err := d.Decompose(testutil.TestContext(t), "what's the weather today")
	require.NoError(t, err)
	assert.Equal(t, types.WorkerGeneral, b.PrimaryAgent)
	require.Len(t, b.Subtasks, 1)
	assert.Equal(t, "main_task", b.Subtasks[0].ID)
}

func TestDecomposeCollaboratorFailurePropagates(t *testing.T) {
	boom := errors.New("upstream unreachable")
	provider := mocks.NewMockProvider().WithError(boom)
	d := NewDecomposer(provider, "test-model", nil)

	_, err := d.Decompose(testutil.TestContext(t), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestFallbackBreakdownNeverFails(t *testing.T) {
	for _, query := range []string{"", "analyze", "plain chat", "  "} {
		b := FallbackBreakdown(query)
		assert.NoError(t, b.Validate(), "query %q", query)
	}
}
