// Package agent provides the capability workers dispatched by the
// coordination state machine: a general-purpose worker and a data-analysis
// worker behind one Worker interface, plus the kind-keyed registry the
// supervisor routes through.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/llm"
	"github.com/BaSui01/coordflow/rag"
	"github.com/BaSui01/coordflow/types"
)

// Worker 能力工作者
// 多态单元：process(messages) -> messages'，由模型与工具组合支撑。
type Worker interface {
	// Kind 返回工作者类型（路由键）
	Kind() types.WorkerKind

	// Name 返回人类可读名称
	Name() string

	// Process 处理消息序列，返回追加了本工作者回复的新序列
	Process(ctx context.Context, messages []types.Message) ([]types.Message, error)

	// Capabilities 返回能力描述列表
	Capabilities() []string
}

// BaseWorker 工作者公共实现
// 持有 Provider 与可选检索器；具体工作者负责人设提示词与上下文拼装。
type BaseWorker struct {
	kind        types.WorkerKind
	name        string
	description string
	provider    llm.Provider
	model       string
	retriever   rag.Retriever
	contextTopK int
	logger      *zap.Logger
}

// WorkerOption configures the shared worker core.
type WorkerOption func(*BaseWorker)

// WithContextTopK overrides the worker's default retrieval depth.
// Non-positive values keep the per-worker default.
func WithContextTopK(k int) WorkerOption {
	return func(w *BaseWorker) { w.contextTopK = k }
}

// NewBaseWorker builds the shared worker core. retriever may be nil.
func NewBaseWorker(kind types.WorkerKind, name, description string, provider llm.Provider, model string, retriever rag.Retriever, logger *zap.Logger, opts ...WorkerOption) BaseWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := BaseWorker{
		kind:        kind,
		name:        name,
		description: description,
		provider:    provider,
		model:       model,
		retriever:   retriever,
		logger:      logger.With(zap.String("component", "worker"), zap.String("worker", string(kind))),
	}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

func (w *BaseWorker) Kind() types.WorkerKind { return w.kind }
func (w *BaseWorker) Name() string           { return w.name }

// Capabilities returns the shared capability listing; concrete workers
// append their specifics.
func (w *BaseWorker) Capabilities() []string {
	return []string{
		"Agent ID: " + string(w.kind),
		"Name: " + w.name,
		"Description: " + w.description,
	}
}

// retrieveContext pulls top-k passages for the query; "" when no retriever
// is configured or nothing matches. A configured WithContextTopK wins over
// the worker's default depth.
func (w *BaseWorker) retrieveContext(ctx context.Context, query string, k int) (string, error) {
	if w.retriever == nil {
		return "", nil
	}
	if w.contextTopK > 0 {
		k = w.contextTopK
	}
	passages, err := w.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return "", fmt.Errorf("context retrieval failed: %w", err)
	}
	return passages, nil
}

// reply runs one completion over the system prompt plus the history and
// returns the history with the worker's assistant reply appended.
func (w *BaseWorker) reply(ctx context.Context, systemPrompt string, messages []types.Message) ([]types.Message, error) {
	prompt := make([]types.Message, 0, len(messages)+1)
	prompt = append(prompt, types.NewSystemMessage(systemPrompt))
	prompt = append(prompt, messages...)

	resp, err := w.provider.Completion(ctx, &llm.ChatRequest{
		Model:    w.model,
		Messages: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", w.kind, err)
	}

	w.logger.Debug("worker replied",
		zap.Int("history", len(messages)),
		zap.Int("tokens", resp.Usage.TotalTokens),
	)
	return types.AppendMessages(messages, []types.Message{
		types.NewAssistantMessage(resp.FirstContent()).WithName(string(w.kind)),
	}), nil
}
