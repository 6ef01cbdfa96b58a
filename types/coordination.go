package types

import "fmt"

// WorkerKind 工作者类型
// 封闭枚举：路由表必须对每个取值穷尽处理。
type WorkerKind string

const (
	WorkerGeneral WorkerKind = "general_agent"
	WorkerAnalyst WorkerKind = "data_analyst"
)

// ParseWorkerKind maps a free-form agent name to a WorkerKind.
// Unrecognized values fall back to WorkerGeneral, matching the
// supervisor-to-worker routing contract.
func ParseWorkerKind(s string) WorkerKind {
	switch WorkerKind(s) {
	case WorkerAnalyst:
		return WorkerAnalyst
	default:
		return WorkerGeneral
	}
}

// Valid reports whether the kind is a known worker.
func (k WorkerKind) Valid() bool {
	return k == WorkerGeneral || k == WorkerAnalyst
}

// Complexity 任务复杂度分级
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Valid reports whether the complexity is a known class.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return true
	}
	return false
}

// StepStatus 计划步骤状态
type StepStatus string

const (
	StepPending     StepStatus = "pending"
	StepWaitingDeps StepStatus = "waiting_for_dependencies"
	StepInProgress  StepStatus = "in_progress"
	StepDelegated   StepStatus = "delegated"
	StepCompleted   StepStatus = "completed"
)

// Subtask 任务分解产生的子任务
type Subtask struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Agent        WorkerKind `json:"agent"`
	Dependencies []string   `json:"dependencies"`
	Priority     int        `json:"priority"`
}

// TaskBreakdown 查询的结构化分解结果
// 由 Decomposer 一次性产出；ExecutionPlan 永远从当前 breakdown 派生。
type TaskBreakdown struct {
	Complexity     Complexity `json:"complexity"`
	PrimaryAgent   WorkerKind `json:"primary_agent"`
	Subtasks       []Subtask  `json:"subtasks"`
	ExpectedOutput string     `json:"expected_output"`
}

// Validate enforces the schema boundary on generative decomposition output:
// known complexity class and agent kinds, non-empty unique subtask ids,
// dependencies referencing ids in the same breakdown, priority >= 1.
func (b *TaskBreakdown) Validate() error {
	if !b.Complexity.Valid() {
		return fmt.Errorf("invalid complexity: %q", b.Complexity)
	}
	if !b.PrimaryAgent.Valid() {
		return fmt.Errorf("invalid primary agent: %q", b.PrimaryAgent)
	}
	if len(b.Subtasks) == 0 {
		return fmt.Errorf("breakdown has no subtasks")
	}
	ids := make(map[string]struct{}, len(b.Subtasks))
	for i, st := range b.Subtasks {
		if st.ID == "" {
			return fmt.Errorf("subtask %d has empty id", i)
		}
		if _, dup := ids[st.ID]; dup {
			return fmt.Errorf("duplicate subtask id: %q", st.ID)
		}
		ids[st.ID] = struct{}{}
		if !st.Agent.Valid() {
			return fmt.Errorf("subtask %q has invalid agent: %q", st.ID, st.Agent)
		}
		if st.Priority < 1 {
			return fmt.Errorf("subtask %q has priority %d, want >= 1", st.ID, st.Priority)
		}
	}
	for _, st := range b.Subtasks {
		for _, dep := range st.Dependencies {
			if _, ok := ids[dep]; !ok {
				return fmt.Errorf("subtask %q depends on unknown id %q", st.ID, dep)
			}
		}
	}
	return nil
}

// PlanStep 委派执行计划中的一步
type PlanStep struct {
	Step          int        `json:"step"` // 1-based position in plan order
	TaskID        string     `json:"task_id"`
	Description   string     `json:"description"`
	AssignedAgent WorkerKind `json:"assigned_agent"`
	Dependencies  []string   `json:"dependencies"`
	Status        StepStatus `json:"status"`
	Result        string     `json:"result,omitempty"`
}

// ExecutionReport 监控一次计划走查的结果
type ExecutionReport struct {
	Steps       []PlanStep `json:"steps"`
	FinalOutput string     `json:"final_output"`
	Status      StepStatus `json:"status"`
}

// CoordinationState 单个会话线程的协调状态
// 每个 turn 由状态机串行修改一次，终边之后整体持久化。
type CoordinationState struct {
	Messages          []Message             `json:"messages"`
	CurrentAgent      string                `json:"current_agent,omitempty"`
	TaskBreakdown     *TaskBreakdown        `json:"task_breakdown,omitempty"`
	ExecutionPlan     []PlanStep            `json:"execution_plan,omitempty"`
	AgentResults      map[WorkerKind]string `json:"agent_results,omitempty"`
	SupervisionActive bool                  `json:"supervision_active"`
}

// NewCoordinationState returns a fresh empty state for an unknown thread.
func NewCoordinationState() *CoordinationState {
	return &CoordinationState{}
}

// AppendMessages appends new messages to the history (concatenation reducer).
func (s *CoordinationState) AppendMessages(msgs ...Message) {
	s.Messages = AppendMessages(s.Messages, msgs)
}

// SetBreakdown replaces the breakdown and its derived plan together,
// preserving the invariant that the plan always derives from the current
// breakdown.
func (s *CoordinationState) SetBreakdown(b *TaskBreakdown, plan []PlanStep) {
	s.TaskBreakdown = b
	s.ExecutionPlan = plan
}

// RecordResult stores a worker's raw result keyed by its kind.
func (s *CoordinationState) RecordResult(kind WorkerKind, result string) {
	if s.AgentResults == nil {
		s.AgentResults = make(map[WorkerKind]string)
	}
	s.AgentResults[kind] = result
}

// Clone returns a deep copy. Turns mutate a clone so that a failed turn
// never leaks partial progress into the caller's state.
func (s *CoordinationState) Clone() *CoordinationState {
	if s == nil {
		return nil
	}
	out := &CoordinationState{
		CurrentAgent:      s.CurrentAgent,
		SupervisionActive: s.SupervisionActive,
	}
	if len(s.Messages) > 0 {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	if s.TaskBreakdown != nil {
		b := *s.TaskBreakdown
		b.Subtasks = cloneSubtasks(s.TaskBreakdown.Subtasks)
		out.TaskBreakdown = &b
	}
	if len(s.ExecutionPlan) > 0 {
		out.ExecutionPlan = make([]PlanStep, len(s.ExecutionPlan))
		copy(out.ExecutionPlan, s.ExecutionPlan)
		for i := range out.ExecutionPlan {
			out.ExecutionPlan[i].Dependencies = cloneStrings(s.ExecutionPlan[i].Dependencies)
		}
	}
	if s.AgentResults != nil {
		out.AgentResults = make(map[WorkerKind]string, len(s.AgentResults))
		for k, v := range s.AgentResults {
			out.AgentResults[k] = v
		}
	}
	return out
}

func cloneSubtasks(in []Subtask) []Subtask {
	if in == nil {
		return nil
	}
	out := make([]Subtask, len(in))
	copy(out, in)
	for i := range out {
		out[i].Dependencies = cloneStrings(in[i].Dependencies)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
