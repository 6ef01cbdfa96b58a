package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/coordflow/types"
)

// EchoProvider 本地确定性 Provider
// 不访问网络：对最后一条用户/系统消息做确定性改写后返回。
// 用于本地运行与演示，完整走通协调路径（分解调用返回的自由文本
// 无法解析为 JSON，会触发分解器的确定性降级，这正是规约定义的行为）。
type EchoProvider struct{}

// NewEchoProvider creates the local echo provider.
func NewEchoProvider() *EchoProvider { return &EchoProvider{} }

func (p *EchoProvider) Name() string { return "echo" }

// Completion returns a canned reply derived from the last message.
func (p *EchoProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || len(req.Messages) == 0 {
		return nil, &Error{Code: ErrInvalidRequest, Message: "empty request", Provider: p.Name()}
	}
	last := req.Messages[len(req.Messages)-1]
	content := fmt.Sprintf("[echo] %s", truncate(strings.TrimSpace(last.Content), 400))
	return &ChatResponse{
		Provider: p.Name(),
		Model:    req.Model,
		Choices: []ChatChoice{{
			Message:      types.NewAssistantMessage(content),
			FinishReason: "stop",
		}},
	}, nil
}

// Stream chunks the completion content into fixed-size deltas.
func (p *EchoProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	resp, err := p.Completion(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		// Chunk on rune boundaries so multi-byte content stays valid UTF-8.
		runes := []rune(resp.FirstContent())
		const chunkSize = 32
		for i := 0; i < len(runes); i += chunkSize {
			end := i + chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			select {
			case <-ctx.Done():
				return
			case out <- StreamChunk{Delta: types.Message{Role: types.RoleAssistant, Content: string(runes[i:end])}}:
			}
		}
		select {
		case <-ctx.Done():
		case out <- StreamChunk{FinishReason: "stop"}:
		}
	}()
	return out, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
