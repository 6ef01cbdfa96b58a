package supervisor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/coordflow/types"
)

// Monitor 执行监控器
// 默认按计划顺序单趟走查：解析每一步的依赖就绪情况并推进其状态；
// 并行模式按依赖波次推进，同一波内并发委派。
// 委派建模为"已交接"而非"已完成"，单趟内不回溯、不重试。
type Monitor struct {
	// delegatedSatisfies 把 delegated 视为满足依赖。
	// 基线语义（默认 false）只认 completed，而单趟内没有步骤会到达
	// completed，因此带依赖的步骤总是 waiting —— 这是对原系统字面
	// 行为的保留，见 DESIGN.md 的 Open Question 记录。
	delegatedSatisfies bool
	parallel           bool
	logger             *zap.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithDelegatedSatisfies treats delegated steps as satisfying dependents,
// the likely original intent behind the baseline's unreachable transition.
func WithDelegatedSatisfies() MonitorOption {
	return func(m *Monitor) { m.delegatedSatisfies = true }
}

// WithParallel resolves the plan in dependency waves instead of plan order:
// each wave delegates every ready step concurrently, and steps unlocked by a
// wave join the next one. Combined with WithDelegatedSatisfies this reaches
// the dependency fixpoint, delegating steps the in-order pass would leave
// waiting on a dependency listed later in the plan.
func WithParallel() MonitorOption {
	return func(m *Monitor) { m.parallel = true }
}

// NewMonitor creates an execution monitor.
func NewMonitor(logger *zap.Logger, opts ...MonitorOption) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		logger: logger.With(zap.String("component", "monitor")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// satisfied reports whether status unblocks dependents under the configured
// semantics.
func (m *Monitor) satisfied(status types.StepStatus) bool {
	if status == types.StepCompleted {
		return true
	}
	return m.delegatedSatisfies && status == types.StepDelegated
}

// Monitor resolves dependency readiness and advances each step, in plan
// order by default or in concurrent waves when parallel mode is on. The
// input plan is not mutated and the report keeps plan order.
func (m *Monitor) Monitor(ctx context.Context, plan []types.PlanStep) (types.ExecutionReport, error) {
	if err := ctx.Err(); err != nil {
		return types.ExecutionReport{}, err
	}

	report := types.ExecutionReport{}

	if m.parallel {
		steps, err := m.delegateWaves(ctx, plan)
		if err != nil {
			return types.ExecutionReport{}, err
		}
		report.Steps = steps
	} else {
		report.Steps = make([]types.PlanStep, 0, len(plan))
		for _, step := range plan {
			if unmet := m.unmetDependencies(step, report.Steps); len(unmet) > 0 {
				step.Status = types.StepWaitingDeps
				step.Result = "Waiting for: " + strings.Join(unmet, ", ")
				report.Steps = append(report.Steps, step)
				m.logger.Debug("step waiting for dependencies",
					zap.String("task_id", step.TaskID),
					zap.Strings("unmet", unmet),
				)
				continue
			}

			step.Status = types.StepInProgress
			m.logger.Debug("step in progress",
				zap.Int("step", step.Step),
				zap.String("task_id", step.TaskID),
				zap.String("assigned_agent", string(step.AssignedAgent)),
			)

			step.Result = delegationResult(step)
			step.Status = types.StepDelegated
			report.Steps = append(report.Steps, step)
		}
	}

	report.Status = types.StepDelegated
	report.FinalOutput = summarizePass(report.Steps)
	return report, nil
}

// unmetDependencies returns dependency ids not yet satisfied among steps
// already processed in this pass.
func (m *Monitor) unmetDependencies(step types.PlanStep, processed []types.PlanStep) []string {
	if len(step.Dependencies) == 0 {
		return nil
	}
	var unmet []string
	for _, dep := range step.Dependencies {
		ok := false
		for _, prev := range processed {
			if prev.TaskID == dep && m.satisfied(prev.Status) {
				ok = true
				break
			}
		}
		if !ok {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// delegateWaves resolves the plan in dependency waves. Each wave collects
// the not-yet-delegated steps whose dependencies are all satisfied and
// delegates them concurrently; steps unlocked by a wave join the next one.
// Under baseline semantics delegation never satisfies a dependent, so only
// the first wave runs and the remainder waits, matching the in-order pass.
// The returned steps keep plan order.
func (m *Monitor) delegateWaves(ctx context.Context, plan []types.PlanStep) ([]types.PlanStep, error) {
	steps := make([]types.PlanStep, len(plan))
	copy(steps, plan)

	satisfiedIDs := make(map[string]bool, len(steps))
	delegated := make(map[int]bool, len(steps))

	for wave := 1; len(delegated) < len(steps); wave++ {
		var ready []int
		for i := range steps {
			if !delegated[i] && len(unmetAgainst(steps[i], satisfiedIDs)) == 0 {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, i := range ready {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				steps[i].Result = delegationResult(steps[i])
				steps[i].Status = types.StepDelegated
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		m.logger.Debug("wave delegated",
			zap.Int("wave", wave),
			zap.Int("steps", len(ready)),
		)
		for _, i := range ready {
			delegated[i] = true
			if m.satisfied(types.StepDelegated) {
				satisfiedIDs[steps[i].TaskID] = true
			}
		}
		if !m.satisfied(types.StepDelegated) {
			// No later wave can unlock anything.
			break
		}
	}

	for i := range steps {
		if delegated[i] {
			continue
		}
		unmet := unmetAgainst(steps[i], satisfiedIDs)
		steps[i].Status = types.StepWaitingDeps
		steps[i].Result = "Waiting for: " + strings.Join(unmet, ", ")
		m.logger.Debug("step waiting for dependencies",
			zap.String("task_id", steps[i].TaskID),
			zap.Strings("unmet", unmet),
		)
	}
	return steps, nil
}

// unmetAgainst returns the step's dependency ids missing from the satisfied
// set.
func unmetAgainst(step types.PlanStep, satisfiedIDs map[string]bool) []string {
	var unmet []string
	for _, dep := range step.Dependencies {
		if !satisfiedIDs[dep] {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

func delegationResult(step types.PlanStep) string {
	return fmt.Sprintf("Task '%s' assigned to %s", step.Description, step.AssignedAgent)
}

func summarizePass(steps []types.PlanStep) string {
	var b strings.Builder
	for _, step := range steps {
		fmt.Fprintf(&b, "Step %d [%s] %s: %s\n", step.Step, step.Status, step.TaskID, step.Result)
	}
	return strings.TrimRight(b.String(), "\n")
}
