package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/llm"
	"github.com/BaSui01/coordflow/rag"
	"github.com/BaSui01/coordflow/types"
)

const analystPromptTemplate = `You are a specialized Data Analyst AI assistant focused on statistical analysis and reporting.

Your expertise includes:
- Performing comprehensive data analysis and generating insights
- Creating statistical summaries and detailed reports
- Identifying trends, patterns, and anomalies in data
- Calculating key performance metrics (KPIs)
- Providing actionable business intelligence

Relevant schema information:
%s

Always provide:
- Clear numerical results with proper formatting
- Trend analysis when relevant
- Business context and implications
- Actionable insights and recommendations`

// analystContextTopK 分析工作者的上下文检索条数
const analystContextTopK = 3

// AnalystWorker 数据分析工作者
// 专精统计分析、报表与业务洞察类任务。
type AnalystWorker struct {
	BaseWorker
}

// NewAnalystWorker creates the data-analysis worker. retriever may be nil.
func NewAnalystWorker(provider llm.Provider, model string, retriever rag.Retriever, logger *zap.Logger, opts ...WorkerOption) *AnalystWorker {
	return &AnalystWorker{
		BaseWorker: NewBaseWorker(
			types.WorkerAnalyst,
			"Data Analyst Agent",
			"Specialized in statistical analysis, reporting, and data insights",
			provider, model, retriever, logger, opts...,
		),
	}
}

// Process answers the conversation with analysis-focused context.
func (w *AnalystWorker) Process(ctx context.Context, messages []types.Message) ([]types.Message, error) {
	query := lastContent(messages)
	passages, err := w.retrieveContext(ctx, query, analystContextTopK)
	if err != nil {
		return nil, err
	}
	return w.reply(ctx, fmt.Sprintf(analystPromptTemplate, passages), messages)
}

// Capabilities lists the analyst worker's specifics.
func (w *AnalystWorker) Capabilities() []string {
	return append(w.BaseWorker.Capabilities(),
		"Statistical analysis and reporting",
		"Trend identification and pattern analysis",
		"Key Performance Indicator (KPI) calculation",
		"Comparative analysis across dimensions",
		"Revenue and sales performance analysis",
	)
}
