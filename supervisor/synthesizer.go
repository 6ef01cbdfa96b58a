package supervisor

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/llm"
	"github.com/BaSui01/coordflow/types"
)

const synthesisSystemPrompt = `You are a supervisor agent synthesizing results from multiple specialized agents.

Your task is to:
1. Combine the results from different agents
2. Ensure consistency and coherence
3. Provide a comprehensive answer to the original query
4. Highlight key insights and findings

Present the final response in a clear, structured format.`

// Synthesizer 结果合成器
// 用一次生成式调用把监控结果与原始查询合并为单条自然语言回复。
// 输出是自由文本，不做结构校验。
type Synthesizer struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewSynthesizer creates a synthesizer backed by the given provider.
func NewSynthesizer(provider llm.Provider, model string, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		provider: provider,
		model:    model,
		logger:   logger.With(zap.String("component", "synthesizer")),
	}
}

// Synthesize merges the execution report and the original query into one
// response. Collaborator failure propagates; a successful call always
// yields a string.
func (s *Synthesizer) Synthesize(ctx context.Context, report types.ExecutionReport, originalQuery string) (string, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		// A report is always marshalable; treat anything else as fatal.
		return "", fmt.Errorf("encode execution report: %w", err)
	}

	prompt := fmt.Sprintf(`Original Query: %s

Execution Results: %s

Please synthesize these results into a comprehensive response.`, originalQuery, reportJSON)

	resp, err := s.provider.Completion(ctx, &llm.ChatRequest{
		Model: s.model,
		Messages: []types.Message{
			types.NewSystemMessage(synthesisSystemPrompt),
			types.NewUserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("synthesis call failed: %w", err)
	}
	return resp.FirstContent(), nil
}
