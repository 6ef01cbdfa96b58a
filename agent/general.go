package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/llm"
	"github.com/BaSui01/coordflow/rag"
	"github.com/BaSui01/coordflow/types"
)

const generalPromptTemplate = `You are a helpful general assistant that can answer questions about the database or search the internet.

Here is key schema documentation for the sales database:

%s

You handle:
- General queries and conversations
- Basic database lookups and simple queries
- Web searches for external information
- Product information and basic customer queries

Always be helpful and provide accurate information.`

// generalContextTopK 通用工作者的上下文检索条数
const generalContextTopK = 5

// GeneralWorker 通用工作者
// 处理普通对话、基础查询与外部信息检索类任务。
type GeneralWorker struct {
	BaseWorker
}

// NewGeneralWorker creates the general-purpose worker. retriever may be nil.
func NewGeneralWorker(provider llm.Provider, model string, retriever rag.Retriever, logger *zap.Logger, opts ...WorkerOption) *GeneralWorker {
	return &GeneralWorker{
		BaseWorker: NewBaseWorker(
			types.WorkerGeneral,
			"General Agent",
			"Handles general queries, basic database lookups, and web searches",
			provider, model, retriever, logger, opts...,
		),
	}
}

// Process answers the conversation with retrieved schema context.
func (w *GeneralWorker) Process(ctx context.Context, messages []types.Message) ([]types.Message, error) {
	query := lastContent(messages)
	passages, err := w.retrieveContext(ctx, query, generalContextTopK)
	if err != nil {
		return nil, err
	}
	return w.reply(ctx, fmt.Sprintf(generalPromptTemplate, passages), messages)
}

// Capabilities lists the general worker's specifics.
func (w *GeneralWorker) Capabilities() []string {
	return append(w.BaseWorker.Capabilities(),
		"Web search for external information",
		"Basic SQL queries",
		"General conversation",
		"Product information lookup",
		"Customer basic queries",
	)
}

func lastContent(messages []types.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}
