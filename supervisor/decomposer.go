package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/llm"
	"github.com/BaSui01/coordflow/types"
)

// decompositionSystemPrompt 约束生成式调用输出 TaskBreakdown 形状的 JSON。
const decompositionSystemPrompt = `You are a supervisor agent that decomposes complex queries into manageable subtasks.

Analyze the user query and determine:
1. Task complexity (simple/medium/complex)
2. Required agent type (general_agent or data_analyst)
3. Subtasks if the task is complex
4. Dependencies between subtasks
5. Expected deliverables

Available agents:
- general_agent: General queries, web search, basic database lookups
- data_analyst: Statistical analysis, reporting, data insights, complex SQL queries

Respond in JSON format with:
{
    "complexity": "simple|medium|complex",
    "primary_agent": "general_agent|data_analyst",
    "subtasks": [
        {
            "id": "task_1",
            "description": "Task description",
            "agent": "agent_type",
            "dependencies": [],
            "priority": 1
        }
    ],
    "expected_output": "Description of expected deliverables"
}`

// Decomposer 任务分解器
// 委托生成式调用产出结构化分解；输出不可解析或未通过校验时，
// 确定性降级为单子任务分解（该降级从不失败）。
type Decomposer struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewDecomposer creates a decomposer backed by the given provider.
func NewDecomposer(provider llm.Provider, model string, logger *zap.Logger) *Decomposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{
		provider: provider,
		model:    model,
		logger:   logger.With(zap.String("component", "decomposer")),
	}
}

// Decompose turns a query into a structured task breakdown.
//
// Malformed generative output degrades to FallbackBreakdown and never
// surfaces. A failed provider call (network, cancellation) is a collaborator
// failure and propagates to the caller.
func (d *Decomposer) Decompose(ctx context.Context, query string) (types.TaskBreakdown, error) {
	resp, err := d.provider.Completion(ctx, &llm.ChatRequest{
		Model: d.model,
		Messages: []types.Message{
			types.NewSystemMessage(decompositionSystemPrompt),
			types.NewUserMessage(query),
		},
	})
	if err != nil {
		var llmErr *llm.Error
		if errors.As(err, &llmErr) && llmErr.Code == llm.ErrMalformedOutput {
			d.logger.Warn("decomposition output malformed, using fallback", zap.Error(err))
			return FallbackBreakdown(query), nil
		}
		return types.TaskBreakdown{}, fmt.Errorf("decomposition call failed: %w", err)
	}

	breakdown, ok := parseBreakdown(resp.FirstContent())
	if !ok {
		d.logger.Warn("decomposition output unparsable, using fallback",
			zap.String("query", query),
		)
		return FallbackBreakdown(query), nil
	}
	if err := breakdown.Validate(); err != nil {
		d.logger.Warn("decomposition output failed validation, using fallback",
			zap.String("query", query),
			zap.Error(err),
		)
		return FallbackBreakdown(query), nil
	}

	d.logger.Debug("task decomposed",
		zap.String("complexity", string(breakdown.Complexity)),
		zap.String("primary_agent", string(breakdown.PrimaryAgent)),
		zap.Int("subtasks", len(breakdown.Subtasks)),
	)
	return breakdown, nil
}

// parseBreakdown 解析分解输出
// 依次尝试：整体 JSON 解析、```json 代码块、无语言标记的 ``` 代码块。
func parseBreakdown(content string) (types.TaskBreakdown, bool) {
	if b, ok := tryParseBreakdown(content); ok {
		return b, true
	}
	if block, ok := extractCodeBlock(content, "```json"); ok {
		if b, ok := tryParseBreakdown(block); ok {
			return b, true
		}
	}
	if block, ok := extractCodeBlock(content, "```"); ok {
		if b, ok := tryParseBreakdown(block); ok {
			return b, true
		}
	}
	return types.TaskBreakdown{}, false
}

func tryParseBreakdown(raw string) (types.TaskBreakdown, bool) {
	var b types.TaskBreakdown
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &b); err != nil {
		return types.TaskBreakdown{}, false
	}
	return b, true
}

// extractCodeBlock pulls the first fenced block opened by marker.
func extractCodeBlock(content, marker string) (string, bool) {
	idx := strings.Index(content, marker)
	if idx == -1 {
		return "", false
	}
	start := idx + len(marker)
	if marker == "```" {
		// Skip a language tag on the fence line.
		if nl := strings.Index(content[start:], "\n"); nl != -1 {
			start += nl + 1
		}
	}
	end := strings.Index(content[start:], "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(content[start : start+end]), true
}

// FallbackBreakdown 确定性降级分解
// 单子任务，复杂度 simple，agent 由关键词分类器决定。
func FallbackBreakdown(query string) types.TaskBreakdown {
	kind := Classify(query)
	return types.TaskBreakdown{
		Complexity:   types.ComplexitySimple,
		PrimaryAgent: kind,
		Subtasks: []types.Subtask{{
			ID:           "main_task",
			Description:  query,
			Agent:        kind,
			Dependencies: []string{},
			Priority:     1,
		}},
		ExpectedOutput: "Direct response to user query",
	}
}
