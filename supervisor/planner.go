package supervisor

import (
	"sort"

	"github.com/BaSui01/coordflow/types"
)

// Plan 把任务分解排序成带步骤编号的委派执行计划。
// 排序键 (依赖数, 优先级) 升序：依赖更少、优先级数字更小的先执行；
// 稳定排序保证同键子任务维持分解中的原始相对顺序。
func Plan(breakdown types.TaskBreakdown) []types.PlanStep {
	subtasks := make([]types.Subtask, len(breakdown.Subtasks))
	copy(subtasks, breakdown.Subtasks)

	sort.SliceStable(subtasks, func(i, j int) bool {
		di, dj := len(subtasks[i].Dependencies), len(subtasks[j].Dependencies)
		if di != dj {
			return di < dj
		}
		return subtasks[i].Priority < subtasks[j].Priority
	})

	plan := make([]types.PlanStep, len(subtasks))
	for i, st := range subtasks {
		deps := make([]string, len(st.Dependencies))
		copy(deps, st.Dependencies)
		plan[i] = types.PlanStep{
			Step:          i + 1,
			TaskID:        st.ID,
			Description:   st.Description,
			AssignedAgent: st.Agent,
			Dependencies:  deps,
			Status:        types.StepPending,
		}
	}
	return plan
}
