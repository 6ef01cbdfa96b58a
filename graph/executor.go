package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/session"
	"github.com/BaSui01/coordflow/types"
)

const tracerName = "github.com/BaSui01/coordflow/graph"

// Executor 回合执行器
// 一个 turn = 加载线程状态 → 克隆 → 追加用户消息 → 跑状态机到终边 → 持久化。
// 同一 thread 的回合串行执行；失败的回合不写存储，线程状态保持不变。
type Executor struct {
	graph   *Graph
	store   session.Store
	locks   sync.Map // threadID -> *sync.Mutex
	tracer  trace.Tracer
	logger  *zap.Logger
	metrics *metrics.Collector
	backend string
}

// ExecutorOption configures the Executor.
type ExecutorOption func(*Executor)

// WithMetrics installs a metrics collector; backend labels session
// operations (memory, redis, database).
func WithMetrics(c *metrics.Collector, backend string) ExecutorOption {
	return func(e *Executor) {
		e.metrics = c
		if backend != "" {
			e.backend = backend
		}
	}
}

// NewExecutor creates a turn executor over a graph and a session store.
func NewExecutor(g *Graph, store session.Store, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		graph:   g,
		store:   store,
		tracer:  otel.Tracer(tracerName),
		logger:  logger.With(zap.String("component", "executor")),
		backend: string(session.BackendMemory),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessQuery runs one coordination turn for query under threadID.
//
// With stream=false the turn runs synchronously and the final state is
// returned. With stream=true the turn runs in the background and the
// returned channel delivers ordered node events, ending with a done event
// carrying the final state (or a node_error event on failure); the channel
// is closed when the turn ends and can only be consumed once.
func (e *Executor) ProcessQuery(ctx context.Context, query, threadID string, stream bool) (*types.CoordinationState, <-chan StreamEvent, error) {
	if query == "" {
		return nil, nil, fmt.Errorf("query is empty")
	}
	if threadID == "" {
		return nil, nil, fmt.Errorf("thread id is empty")
	}

	if !stream {
		state, err := e.runTurn(ctx, query, threadID, nil)
		return state, nil, err
	}

	ch := make(chan StreamEvent, 16)
	go func() {
		defer close(ch)
		emit := func(ev StreamEvent) { ch <- ev }
		if _, err := e.runTurn(ctx, query, threadID, emit); err != nil {
			e.logger.Error("streamed turn failed",
				zap.String("thread_id", threadID),
				zap.Error(err),
			)
		}
	}()
	return nil, ch, nil
}

// MemorySummary projects the thread's persisted state into its memory
// summary. A store failure yields a summary carrying the error instead of
// interrupting the caller.
func (e *Executor) MemorySummary(ctx context.Context, threadID string) session.Summary {
	state, err := e.store.Load(ctx, threadID)
	if err != nil {
		e.metrics.RecordSessionOp(e.backend, "load", "error")
		return session.Summary{ThreadID: threadID, Error: err.Error()}
	}
	e.metrics.RecordSessionOp(e.backend, "load", "ok")
	return session.Summarize(threadID, state)
}

func (e *Executor) lockFor(threadID string) *sync.Mutex {
	v, _ := e.locks.LoadOrStore(threadID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// runTurn 执行单个回合
// emit 为空时事件被丢弃。锁的粒度是整回合，读-改-写对同线程原子。
func (e *Executor) runTurn(ctx context.Context, query, threadID string, emit func(StreamEvent)) (*types.CoordinationState, error) {
	if emit == nil {
		emit = func(StreamEvent) {}
	}
	turnID := uuid.NewString()
	logger := e.logger.With(
		zap.String("thread_id", threadID),
		zap.String("turn_id", turnID),
	)

	lock := e.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := e.tracer.Start(ctx, "coordflow.turn", trace.WithAttributes(
		attribute.String("coordflow.thread_id", threadID),
		attribute.String("coordflow.turn_id", turnID),
	))
	defer span.End()

	started := time.Now()

	prev, err := e.store.Load(ctx, threadID)
	if err != nil {
		e.metrics.RecordSessionOp(e.backend, "load", "error")
		e.metrics.RecordTurn("error", time.Since(started))
		span.RecordError(err)
		emit(StreamEvent{Type: EventNodeError, ThreadID: threadID, TurnID: turnID, Error: err})
		return nil, fmt.Errorf("load session %q: %w", threadID, err)
	}
	e.metrics.RecordSessionOp(e.backend, "load", "ok")

	// Work on a clone: a failed turn must leave the persisted state intact.
	state := prev.Clone()
	state.AppendMessages(types.NewUserMessage(query))

	for node := NodeSupervisor; node != NodeEnd; {
		emit(StreamEvent{Type: EventNodeStart, Node: node, ThreadID: threadID, TurnID: turnID})
		nodeStart := time.Now()

		if err := e.graph.Run(ctx, node, state); err != nil {
			e.metrics.RecordNode(string(node), time.Since(nodeStart))
			e.metrics.RecordTurn("error", time.Since(started))
			span.RecordError(err)
			emit(StreamEvent{Type: EventNodeError, Node: node, ThreadID: threadID, TurnID: turnID, Error: err})
			logger.Error("node failed", zap.String("node", string(node)), zap.Error(err))
			return nil, fmt.Errorf("node %s: %w", node, err)
		}

		e.metrics.RecordNode(string(node), time.Since(nodeStart))
		emit(StreamEvent{Type: EventNodeComplete, Node: node, ThreadID: threadID, TurnID: turnID})
		node = e.graph.Next(node, state)
	}

	if err := e.store.Save(ctx, threadID, state); err != nil {
		e.metrics.RecordSessionOp(e.backend, "save", "error")
		e.metrics.RecordTurn("error", time.Since(started))
		span.RecordError(err)
		emit(StreamEvent{Type: EventNodeError, ThreadID: threadID, TurnID: turnID, Error: err})
		return nil, fmt.Errorf("save session %q: %w", threadID, err)
	}
	e.metrics.RecordSessionOp(e.backend, "save", "ok")
	e.metrics.RecordTurn("ok", time.Since(started))

	logger.Info("turn completed",
		zap.String("current_agent", state.CurrentAgent),
		zap.Int("messages", len(state.Messages)),
		zap.Duration("elapsed", time.Since(started)),
	)
	emit(StreamEvent{Type: EventDone, ThreadID: threadID, TurnID: turnID, State: state})
	return state, nil
}
