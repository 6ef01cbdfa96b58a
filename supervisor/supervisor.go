package supervisor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/llm"
	"github.com/BaSui01/coordflow/types"
)

// AgentName is the identifier the supervisor signs its messages with.
const AgentName = "supervisor"

// Supervisor 监督者
// 协调入口：分解 → 计划 → 监控 → 合成，产出一条协调摘要消息。
type Supervisor struct {
	decomposer  *Decomposer
	monitor     *Monitor
	synthesizer *Synthesizer
	logger      *zap.Logger
}

// New assembles a Supervisor from one provider. Monitor options configure
// the dependency-resolution and concurrency semantics of the pass.
func New(provider llm.Provider, model string, logger *zap.Logger, monitorOpts ...MonitorOption) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Sub-components tag their own component field off the untagged parent.
	return &Supervisor{
		decomposer:  NewDecomposer(provider, model, logger),
		monitor:     NewMonitor(logger, monitorOpts...),
		synthesizer: NewSynthesizer(provider, model, logger),
		logger:      logger.With(zap.String("component", "supervisor")),
	}
}

// DecomposeAndPlan produces the breakdown and its derived plan as one unit,
// so callers can install both into coordination state together.
func (s *Supervisor) DecomposeAndPlan(ctx context.Context, query string) (types.TaskBreakdown, []types.PlanStep, error) {
	breakdown, err := s.decomposer.Decompose(ctx, query)
	if err != nil {
		return types.TaskBreakdown{}, nil, err
	}
	return breakdown, Plan(breakdown), nil
}

// Coordinate runs the full pipeline over the message history and returns
// the breakdown, its derived plan, and the supervisor-authored summary
// message, so the state machine can install all three into coordination
// state together.
func (s *Supervisor) Coordinate(ctx context.Context, messages []types.Message) (types.TaskBreakdown, []types.PlanStep, types.Message, error) {
	query := ""
	if len(messages) > 0 {
		query = messages[len(messages)-1].Content
	}

	breakdown, plan, err := s.DecomposeAndPlan(ctx, query)
	if err != nil {
		return types.TaskBreakdown{}, nil, types.Message{}, err
	}

	report, err := s.monitor.Monitor(ctx, plan)
	if err != nil {
		return types.TaskBreakdown{}, nil, types.Message{}, err
	}

	synthesis, err := s.synthesizer.Synthesize(ctx, report, query)
	if err != nil {
		return types.TaskBreakdown{}, nil, types.Message{}, err
	}

	s.logger.Info("coordination pipeline finished",
		zap.String("complexity", string(breakdown.Complexity)),
		zap.String("primary_agent", string(breakdown.PrimaryAgent)),
		zap.Int("plan_steps", len(plan)),
	)

	summary := coordinationSummary(query, breakdown, plan, synthesis)
	msg := types.NewAssistantMessage(summary).WithName(AgentName)
	return breakdown, plan, msg, nil
}

// Process runs the full coordination pipeline over the message history:
// the last message's content is the query; the returned sequence is the
// input plus one supervisor-authored assistant message.
func (s *Supervisor) Process(ctx context.Context, messages []types.Message) ([]types.Message, error) {
	if len(messages) == 0 {
		return types.AppendMessages(messages, []types.Message{
			types.NewAssistantMessage("No messages to process.").WithName(AgentName),
		}), nil
	}
	_, _, msg, err := s.Coordinate(ctx, messages)
	if err != nil {
		return nil, err
	}
	return types.AppendMessages(messages, []types.Message{msg}), nil
}

// coordinationSummary 渲染监督者消息
// 布局沿用原系统的协调摘要：查询、复杂度、计划步骤、后续协调对象。
func coordinationSummary(query string, breakdown types.TaskBreakdown, plan []types.PlanStep, synthesis string) string {
	var b strings.Builder
	b.WriteString("## Task Coordination Summary\n\n")
	fmt.Fprintf(&b, "**Original Query:** %s\n\n", query)
	fmt.Fprintf(&b, "**Task Complexity:** %s\n\n", breakdown.Complexity)

	b.WriteString("**Execution Plan:**\n")
	for _, step := range plan {
		fmt.Fprintf(&b, "Step %d: %s → %s\n", step.Step, step.Description, step.AssignedAgent)
	}

	b.WriteString("\n**Next Steps:** The following agents will be coordinated:\n")
	for _, step := range plan {
		fmt.Fprintf(&b, "- %s: %s\n", step.AssignedAgent, step.Description)
	}

	fmt.Fprintf(&b, "\n**Supervisor Coordination:** This query requires %s coordination with %d subtask(s).\n",
		breakdown.Complexity, len(plan))

	if synthesis != "" {
		fmt.Fprintf(&b, "\n**Synthesis:**\n%s\n", synthesis)
	}
	return b.String()
}
