package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/coordflow/types"
)

func planBAC() []types.PlanStep {
	return []types.PlanStep{
		{Step: 1, TaskID: "B", Description: "task b", AssignedAgent: types.WorkerGeneral, Status: types.StepPending},
		{Step: 2, TaskID: "A", Description: "task a", AssignedAgent: types.WorkerGeneral, Status: types.StepPending},
		{Step: 3, TaskID: "C", Description: "task c", AssignedAgent: types.WorkerAnalyst, Dependencies: []string{"A"}, Status: types.StepPending},
	}
}

func TestMonitorBaselineDependencyNeverCompletes(t *testing.T) {
	// Baseline semantics: only completed satisfies, and no step reaches
	// completed within a pass, so C waits on A even though A was delegated
	// earlier in the same pass.
	m := NewMonitor(nil)
	report, err := m.Monitor(context.Background(), planBAC())
	require.NoError(t, err)
	require.Len(t, report.Steps, 3)

	assert.Equal(t, types.StepDelegated, report.Steps[0].Status)
	assert.Equal(t, types.StepDelegated, report.Steps[1].Status)
	assert.Equal(t, types.StepWaitingDeps, report.Steps[2].Status)
	assert.Equal(t, "Waiting for: A", report.Steps[2].Result)
	assert.Equal(t, types.StepDelegated, report.Status)
}

func TestMonitorDelegatedSatisfiesOption(t *testing.T) {
	m := NewMonitor(nil, WithDelegatedSatisfies())
	report, err := m.Monitor(context.Background(), planBAC())
	require.NoError(t, err)

	// A is delegated before C is processed, so C is unblocked.
	assert.Equal(t, types.StepDelegated, report.Steps[2].Status)
	assert.Equal(t, "Task 'task c' assigned to data_analyst", report.Steps[2].Result)
}

func TestMonitorWaitsOnForwardDependency(t *testing.T) {
	// The in-order pass is single-direction with no backtracking, so a
	// dependency appearing later in plan order stays unmet.
	plan := []types.PlanStep{
		{Step: 1, TaskID: "late", Dependencies: []string{"early"}, AssignedAgent: types.WorkerGeneral},
		{Step: 2, TaskID: "early", AssignedAgent: types.WorkerGeneral},
	}
	m := NewMonitor(nil, WithDelegatedSatisfies())
	report, err := m.Monitor(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, types.StepWaitingDeps, report.Steps[0].Status)
	assert.Equal(t, "Waiting for: early", report.Steps[0].Result)
	assert.Equal(t, types.StepDelegated, report.Steps[1].Status)
}

func TestMonitorDelegationResultNamesWorker(t *testing.T) {
	m := NewMonitor(nil)
	report, err := m.Monitor(context.Background(), planBAC())
	require.NoError(t, err)

	assert.Equal(t, "Task 'task b' assigned to general_agent", report.Steps[0].Result)
	assert.Equal(t, "Task 'task a' assigned to general_agent", report.Steps[1].Result)
}

func TestMonitorDoesNotMutateInputPlan(t *testing.T) {
	plan := planBAC()
	m := NewMonitor(nil)
	_, err := m.Monitor(context.Background(), plan)
	require.NoError(t, err)
	for _, step := range plan {
		assert.Equal(t, types.StepPending, step.Status)
		assert.Empty(t, step.Result)
	}
}

func TestMonitorParallelBaselineMatchesSequential(t *testing.T) {
	// Under baseline semantics delegation never satisfies a dependent, so
	// the wave pass degenerates to one wave and reports exactly what the
	// in-order pass does.
	seq := NewMonitor(nil)
	par := NewMonitor(nil, WithParallel())

	seqReport, err := seq.Monitor(context.Background(), planBAC())
	require.NoError(t, err)
	parReport, err := par.Monitor(context.Background(), planBAC())
	require.NoError(t, err)

	assert.Equal(t, seqReport, parReport)
}

func TestMonitorParallelWavesResolveForwardDependency(t *testing.T) {
	// The wave pass reaches the dependency fixpoint: "late" depends on a
	// step listed after it, which the in-order pass leaves waiting (see
	// TestMonitorWaitsOnForwardDependency) but a second wave delegates.
	plan := []types.PlanStep{
		{Step: 1, TaskID: "late", Description: "late task", Dependencies: []string{"early"}, AssignedAgent: types.WorkerGeneral},
		{Step: 2, TaskID: "early", Description: "early task", AssignedAgent: types.WorkerGeneral},
	}
	m := NewMonitor(nil, WithDelegatedSatisfies(), WithParallel())
	report, err := m.Monitor(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, report.Steps, 2)

	// Plan order is preserved even though "early" was delegated first.
	assert.Equal(t, "late", report.Steps[0].TaskID)
	assert.Equal(t, types.StepDelegated, report.Steps[0].Status)
	assert.Equal(t, "Task 'late task' assigned to general_agent", report.Steps[0].Result)
	assert.Equal(t, types.StepDelegated, report.Steps[1].Status)
}

func TestMonitorParallelChainDelegatesInWaves(t *testing.T) {
	// a <- b <- c resolves over three waves; an unreachable dependency
	// still ends up waiting with its unmet list.
	plan := []types.PlanStep{
		{Step: 1, TaskID: "a", Description: "a", AssignedAgent: types.WorkerGeneral},
		{Step: 2, TaskID: "b", Description: "b", Dependencies: []string{"a"}, AssignedAgent: types.WorkerGeneral},
		{Step: 3, TaskID: "c", Description: "c", Dependencies: []string{"b"}, AssignedAgent: types.WorkerAnalyst},
		{Step: 4, TaskID: "d", Description: "d", Dependencies: []string{"ghost"}, AssignedAgent: types.WorkerGeneral},
	}
	m := NewMonitor(nil, WithDelegatedSatisfies(), WithParallel())
	report, err := m.Monitor(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, report.Steps, 4)

	assert.Equal(t, types.StepDelegated, report.Steps[0].Status)
	assert.Equal(t, types.StepDelegated, report.Steps[1].Status)
	assert.Equal(t, types.StepDelegated, report.Steps[2].Status)
	assert.Equal(t, types.StepWaitingDeps, report.Steps[3].Status)
	assert.Equal(t, "Waiting for: ghost", report.Steps[3].Result)
}

func TestMonitorParallelDoesNotMutateInputPlan(t *testing.T) {
	plan := planBAC()
	m := NewMonitor(nil, WithDelegatedSatisfies(), WithParallel())
	_, err := m.Monitor(context.Background(), plan)
	require.NoError(t, err)
	for _, step := range plan {
		assert.Equal(t, types.StepPending, step.Status)
		assert.Empty(t, step.Result)
	}
}

func TestMonitorParallelCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMonitor(nil, WithParallel())
	_, err := m.Monitor(ctx, planBAC())
	assert.Error(t, err)
}

func TestMonitorEmptyPlan(t *testing.T) {
	m := NewMonitor(nil)
	report, err := m.Monitor(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Steps)
	assert.Equal(t, types.StepDelegated, report.Status)
}

func TestMonitorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMonitor(nil)
	_, err := m.Monitor(ctx, planBAC())
	assert.Error(t, err)
}
