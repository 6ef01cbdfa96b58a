package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBreakdown() TaskBreakdown {
	return TaskBreakdown{
		Complexity:   ComplexityMedium,
		PrimaryAgent: WorkerAnalyst,
		Subtasks: []Subtask{
			{ID: "a", Description: "collect", Agent: WorkerGeneral, Priority: 1},
			{ID: "b", Description: "analyze", Agent: WorkerAnalyst, Dependencies: []string{"a"}, Priority: 2},
		},
		ExpectedOutput: "report",
	}
}

func TestParseWorkerKind(t *testing.T) {
	assert.Equal(t, WorkerAnalyst, ParseWorkerKind("data_analyst"))
	assert.Equal(t, WorkerGeneral, ParseWorkerKind("general_agent"))
	// Unrecognized values default to the general worker.
	assert.Equal(t, WorkerGeneral, ParseWorkerKind("research_agent"))
	assert.Equal(t, WorkerGeneral, ParseWorkerKind(""))
}

func TestTaskBreakdownValidate(t *testing.T) {
	b := validBreakdown()
	require.NoError(t, b.Validate())

	tests := []struct {
		name   string
		mutate func(*TaskBreakdown)
	}{
		{"bad complexity", func(b *TaskBreakdown) { b.Complexity = "impossible" }},
		{"bad primary agent", func(b *TaskBreakdown) { b.PrimaryAgent = "oracle" }},
		{"no subtasks", func(b *TaskBreakdown) { b.Subtasks = nil }},
		{"empty id", func(b *TaskBreakdown) { b.Subtasks[0].ID = "" }},
		{"duplicate id", func(b *TaskBreakdown) { b.Subtasks[1].ID = "a" }},
		{"bad subtask agent", func(b *TaskBreakdown) { b.Subtasks[0].Agent = "oracle" }},
		{"zero priority", func(b *TaskBreakdown) { b.Subtasks[0].Priority = 0 }},
		{"unknown dependency", func(b *TaskBreakdown) { b.Subtasks[1].Dependencies = []string{"ghost"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBreakdown()
			tt.mutate(&b)
			assert.Error(t, b.Validate())
		})
	}
}

func TestAppendMessagesDoesNotMutateInputs(t *testing.T) {
	current := []Message{NewUserMessage("hi")}
	update := []Message{NewAssistantMessage("hello")}

	merged := AppendMessages(current, update)
	require.Len(t, merged, 2)
	assert.Equal(t, RoleUser, merged[0].Role)
	assert.Equal(t, RoleAssistant, merged[1].Role)

	// Appending again to the original must not alias the merged slice.
	_ = AppendMessages(current, []Message{NewAssistantMessage("other")})
	assert.Equal(t, "hello", merged[1].Content)
}

func TestCoordinationStateClone(t *testing.T) {
	s := NewCoordinationState()
	s.AppendMessages(NewUserMessage("q"))
	b := validBreakdown()
	s.SetBreakdown(&b, []PlanStep{{Step: 1, TaskID: "a", Dependencies: []string{}}})
	s.RecordResult(WorkerAnalyst, "done")
	s.SupervisionActive = true
	s.CurrentAgent = "data_analyst"

	c := s.Clone()
	require.NotNil(t, c)

	// Mutating the clone leaves the source untouched.
	c.AppendMessages(NewAssistantMessage("extra"))
	c.TaskBreakdown.Subtasks[0].ID = "changed"
	c.ExecutionPlan[0].Status = StepDelegated
	c.RecordResult(WorkerGeneral, "other")

	assert.Len(t, s.Messages, 1)
	assert.Equal(t, "a", s.TaskBreakdown.Subtasks[0].ID)
	assert.Equal(t, StepStatus(""), s.ExecutionPlan[0].Status)
	assert.NotContains(t, s.AgentResults, WorkerGeneral)
}

func TestSetBreakdownReplacesTogether(t *testing.T) {
	s := NewCoordinationState()
	b1 := validBreakdown()
	s.SetBreakdown(&b1, []PlanStep{{Step: 1, TaskID: "a"}, {Step: 2, TaskID: "b"}})

	b2 := TaskBreakdown{
		Complexity:   ComplexitySimple,
		PrimaryAgent: WorkerGeneral,
		Subtasks:     []Subtask{{ID: "main_task", Description: "q", Agent: WorkerGeneral, Priority: 1}},
	}
	s.SetBreakdown(&b2, []PlanStep{{Step: 1, TaskID: "main_task"}})

	require.Len(t, s.ExecutionPlan, 1)
	assert.Equal(t, "main_task", s.ExecutionPlan[0].TaskID)
	assert.Equal(t, ComplexitySimple, s.TaskBreakdown.Complexity)
}
