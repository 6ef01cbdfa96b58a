// Package graph implements the coordination state machine: a fixed
// supervisor-first topology with conditional routing to capability workers,
// executed one turn at a time over per-thread persisted state.
//
// 拓扑固定：entry → supervisor → {general_agent, data_analyst} → end。
// 路由是状态的纯函数，节点只通过 CoordinationState 交换数据。
package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/agent"
	"github.com/BaSui01/coordflow/supervisor"
	"github.com/BaSui01/coordflow/types"
)

// NodeName 状态机节点名
type NodeName string

const (
	NodeSupervisor NodeName = supervisor.AgentName
	NodeGeneral    NodeName = NodeName(types.WorkerGeneral)
	NodeAnalyst    NodeName = NodeName(types.WorkerAnalyst)
	NodeEnd        NodeName = "end"
)

// RouteFromSupervisor decides the edge taken after the supervisor node.
// It is a pure function of the state: no breakdown means nothing to
// delegate, otherwise the breakdown's primary agent picks the worker.
func RouteFromSupervisor(state *types.CoordinationState) NodeName {
	if state == nil || state.TaskBreakdown == nil {
		return NodeEnd
	}
	switch state.TaskBreakdown.PrimaryAgent {
	case types.WorkerAnalyst:
		return NodeAnalyst
	default:
		return NodeGeneral
	}
}

// supervisionNotice is the per-kind context injected into a worker's prompt
// when it runs under supervision. The notice steers the reply but is not
// part of the conversation, so it is never persisted.
func supervisionNotice(kind types.WorkerKind) types.Message {
	switch kind {
	case types.WorkerAnalyst:
		return types.NewSystemMessage("[Supervised Task] The supervisor has identified this as a data analysis task requiring statistical insights, reporting, and business intelligence.")
	default:
		return types.NewSystemMessage("[Supervised Task] The supervisor has analyzed your query and determined it requires general assistance with database queries and/or web search.")
	}
}

// Graph 协调状态机
// 节点实现与路由表；不持有会话状态，所有修改都落在传入的 state 上。
type Graph struct {
	supervisor *supervisor.Supervisor
	registry   *agent.Registry
	logger     *zap.Logger
}

// New builds the state machine over a supervisor and a worker registry.
func New(sup *supervisor.Supervisor, registry *agent.Registry, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{
		supervisor: sup,
		registry:   registry,
		logger:     logger.With(zap.String("component", "graph")),
	}
}

// Run executes a single node against the state.
func (g *Graph) Run(ctx context.Context, node NodeName, state *types.CoordinationState) error {
	switch node {
	case NodeSupervisor:
		return g.runSupervisor(ctx, state)
	case NodeGeneral, NodeAnalyst:
		return g.runWorker(ctx, types.WorkerKind(node), state)
	default:
		return fmt.Errorf("unknown node: %q", node)
	}
}

// Next returns the node following node under the current state. Worker
// nodes always terminate the turn.
func (g *Graph) Next(node NodeName, state *types.CoordinationState) NodeName {
	if node == NodeSupervisor {
		return RouteFromSupervisor(state)
	}
	return NodeEnd
}

// runSupervisor 监督者节点
// 打开监督标志，跑完整协调管线，把分解结果、计划和摘要消息装入状态。
func (g *Graph) runSupervisor(ctx context.Context, state *types.CoordinationState) error {
	state.SupervisionActive = true
	state.CurrentAgent = supervisor.AgentName

	breakdown, plan, msg, err := g.supervisor.Coordinate(ctx, state.Messages)
	if err != nil {
		return fmt.Errorf("supervisor coordination failed: %w", err)
	}

	state.SetBreakdown(&breakdown, plan)
	state.AppendMessages(msg)
	return nil
}

// runWorker 工作者节点
// 监督上下文只进提示序列：持久化的历史只增加工作者自己产出的消息。
func (g *Graph) runWorker(ctx context.Context, kind types.WorkerKind, state *types.CoordinationState) error {
	worker, err := g.registry.Lookup(kind)
	if err != nil {
		return err
	}
	state.CurrentAgent = string(worker.Kind())

	input := state.Messages
	if state.SupervisionActive {
		input = types.AppendMessages(state.Messages, []types.Message{supervisionNotice(worker.Kind())})
	}

	out, err := worker.Process(ctx, input)
	if err != nil {
		return fmt.Errorf("worker %s failed: %w", worker.Kind(), err)
	}
	if len(out) < len(input) {
		return fmt.Errorf("worker %s dropped messages: got %d, had %d", worker.Kind(), len(out), len(input))
	}

	fresh := out[len(input):]
	state.AppendMessages(fresh...)
	if len(fresh) > 0 {
		state.RecordResult(worker.Kind(), fresh[len(fresh)-1].Content)
	}

	g.logger.Debug("worker node finished",
		zap.String("worker", string(worker.Kind())),
		zap.Int("new_messages", len(fresh)),
	)
	return nil
}
