package llm

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/coordflow/types"
)

func TestEchoProviderDeterministic(t *testing.T) {
	p := NewEchoProvider()
	req := &ChatRequest{Messages: []types.Message{types.NewUserMessage("hello world")}}

	first, err := p.Completion(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Completion(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.FirstContent(), second.FirstContent())
	assert.Equal(t, "[echo] hello world", first.FirstContent())
	assert.Equal(t, "echo", first.Provider)
}

func TestEchoProviderEmptyRequest(t *testing.T) {
	p := NewEchoProvider()
	_, err := p.Completion(context.Background(), &ChatRequest{})
	require.Error(t, err)

	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrInvalidRequest, llmErr.Code)
}

func TestEchoProviderStream(t *testing.T) {
	p := NewEchoProvider()
	req := &ChatRequest{Messages: []types.Message{types.NewUserMessage("stream me")}}

	ch, err := p.Stream(context.Background(), req)
	require.NoError(t, err)

	var content string
	var finished bool
	for chunk := range ch {
		content += chunk.Delta.Content
		if chunk.FinishReason == "stop" {
			finished = true
		}
	}
	assert.Equal(t, "[echo] stream me", content)
	assert.True(t, finished)
}

func TestEchoProviderTruncatesOnRuneBoundary(t *testing.T) {
	p := NewEchoProvider()
	long := strings.Repeat("统计分析", 150) // 600 runes, well past the cutoff
	req := &ChatRequest{Messages: []types.Message{types.NewUserMessage(long)}}

	resp, err := p.Completion(context.Background(), req)
	require.NoError(t, err)

	content := resp.FirstContent()
	assert.True(t, utf8.ValidString(content))
	assert.True(t, strings.HasSuffix(content, "..."))
	assert.Equal(t, 400+len("[echo] ")+len("..."), utf8.RuneCountInString(content))
}

func TestEchoProviderStreamChunksAreValidUTF8(t *testing.T) {
	p := NewEchoProvider()
	req := &ChatRequest{Messages: []types.Message{
		types.NewUserMessage(strings.Repeat("数据趋势报告", 20)),
	}}

	ch, err := p.Stream(context.Background(), req)
	require.NoError(t, err)

	var content string
	for chunk := range ch {
		assert.True(t, utf8.ValidString(chunk.Delta.Content))
		content += chunk.Delta.Content
	}

	resp, err := p.Completion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, resp.FirstContent(), content)
}

type slowProvider struct{ delay time.Duration }

func (s *slowProvider) Name() string { return "slow" }

func (s *slowProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return &ChatResponse{Choices: []ChatChoice{{Message: types.NewAssistantMessage("late")}}}, nil
	}
}

func (s *slowProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)
	close(ch)
	return ch, nil
}

func TestThrottledProviderTimeout(t *testing.T) {
	p := NewThrottledProvider(&slowProvider{delay: time.Second}, 0, nil, WithTimeout(10*time.Millisecond))

	_, err := p.Completion(context.Background(), &ChatRequest{Messages: []types.Message{types.NewUserMessage("q")}})
	require.Error(t, err)

	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrUpstreamTimeout, llmErr.Code)
	assert.True(t, llmErr.Retryable)
}

func TestThrottledProviderObserver(t *testing.T) {
	var statuses []string
	p := NewThrottledProvider(NewEchoProvider(), 100, nil, WithObserver(func(provider, status string) {
		statuses = append(statuses, provider+":"+status)
	}))

	_, err := p.Completion(context.Background(), &ChatRequest{Messages: []types.Message{types.NewUserMessage("q")}})
	require.NoError(t, err)
	_, err = p.Completion(context.Background(), &ChatRequest{})
	require.Error(t, err)

	assert.Equal(t, []string{"echo:ok", "echo:error"}, statuses)
}

func TestThrottledProviderRateLimitCancelled(t *testing.T) {
	// Rate 1/s with burst 1: the second call must wait, and a cancelled
	// context aborts the wait with a rate-limit error.
	p := NewThrottledProvider(NewEchoProvider(), 1, nil)
	req := &ChatRequest{Messages: []types.Message{types.NewUserMessage("q")}}

	_, err := p.Completion(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Completion(ctx, req)
	require.Error(t, err)

	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrRateLimited, llmErr.Code)
}
