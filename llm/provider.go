// Package llm defines the generative reasoning interface consumed by the
// coordination engine, plus local provider implementations. The engine only
// depends on the Provider contract; vendor adapters live outside this module.
package llm

import (
	"context"
	"time"

	"github.com/BaSui01/coordflow/types"
)

// 统一的 LLM 错误码，用于对齐可重试性与降级策略。
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "LLM_INVALID_REQUEST"  // 参数/格式错误
	ErrRateLimited     ErrorCode = "LLM_RATE_LIMITED"     // 上游或本地限流
	ErrUpstreamTimeout ErrorCode = "LLM_UPSTREAM_TIMEOUT" // 上游超时
	ErrUpstreamError   ErrorCode = "LLM_UPSTREAM_ERROR"   // 上游 5xx/网络错误
	ErrMalformedOutput ErrorCode = "LLM_MALFORMED_OUTPUT" // 结构化输出不可解析
)

// Error is the structured provider error surfaced to callers.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Provider  string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// ChatRequest 一次同步补全请求
type ChatRequest struct {
	TraceID     string          `json:"trace_id,omitempty"`
	Model       string          `json:"model,omitempty"`
	Messages    []types.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int           `json:"index"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Message      types.Message `json:"message"`
}

// ChatUsage 用量统计
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse 同步补全响应
type ChatResponse struct {
	ID       string       `json:"id,omitempty"`
	Provider string       `json:"provider,omitempty"`
	Model    string       `json:"model,omitempty"`
	Choices  []ChatChoice `json:"choices"`
	Usage    ChatUsage    `json:"usage,omitempty"`
}

// FirstContent returns the content of the first choice, or "".
func (r *ChatResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// StreamChunk 流式增量响应
type StreamChunk struct {
	Index        int           `json:"index,omitempty"`
	Delta        types.Message `json:"delta"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Err          *Error        `json:"error,omitempty"`
}

// Provider 定义了统一的生成式推理适配接口。
// 调用方必须把它当作潜在缓慢、且可能返回畸形结构化输出的外部协作者。
type Provider interface {
	// Completion 发起同步请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream 发起流式请求，返回增量响应通道
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}
