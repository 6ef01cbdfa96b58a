// Package session persists coordination state per conversation thread.
//
// Supported backends:
//   - Memory: for development and testing (default)
//   - Redis: for distributed deployments
//   - Database (gorm): sqlite / postgres / mysql by DSN
package session

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/coordflow/types"
)

// Common errors
var (
	ErrStoreClosed  = errors.New("session store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// Backend represents the type of storage backend.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendDatabase Backend = "database"
)

// RedisConfig Redis 后端配置
type RedisConfig struct {
	Addr      string        `json:"addr" yaml:"addr"`
	Password  string        `json:"password" yaml:"password"`
	DB        int           `json:"db" yaml:"db"`
	KeyPrefix string        `json:"key_prefix" yaml:"key_prefix"`
	TTL       time.Duration `json:"ttl" yaml:"ttl"` // 0 = 不过期
}

// DatabaseConfig 数据库后端配置
type DatabaseConfig struct {
	DSN string `json:"dsn" yaml:"dsn"`
}

// StoreConfig 存储配置
type StoreConfig struct {
	Backend  Backend        `json:"backend" yaml:"backend"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Database DatabaseConfig `json:"database" yaml:"database"`
}

// Store 会话存储契约
// Load 对未知线程返回全新空状态而非错误；Save 在终边之后调用一次，
// 持久化包括累积消息序列在内的完整状态。
type Store interface {
	// Load 按线程 id 取回状态；未知 id 返回空状态
	Load(ctx context.Context, threadID string) (*types.CoordinationState, error)

	// Save 持久化线程状态
	Save(ctx context.Context, threadID string, state *types.CoordinationState) error

	// Close 释放底层资源
	Close() error
}

// previewLimit 摘要中消息内容的最大展示长度（按 rune 截断）。
const previewLimit = 100

// MessagePreview is one truncated recent message in a summary.
type MessagePreview struct {
	Role    types.Role `json:"role"`
	Name    string     `json:"name,omitempty"`
	Content string     `json:"content"`
}

// Summary 会话记忆摘要投影
// 存储读取失败时 Error 携带失败信息，调用方不应因此中断。
type Summary struct {
	ThreadID          string           `json:"thread_id"`
	MessageCount      int              `json:"message_count"`
	LastAgent         string           `json:"last_agent,omitempty"`
	SupervisionActive bool             `json:"supervision_active"`
	RecentMessages    []MessagePreview `json:"recent_messages,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// Summarize projects a state into its memory summary: total message count,
// last active agent, supervision flag, and the three most recent messages
// with content truncated to a bounded preview.
func Summarize(threadID string, state *types.CoordinationState) Summary {
	s := Summary{ThreadID: threadID}
	if state == nil {
		return s
	}
	s.MessageCount = len(state.Messages)
	s.LastAgent = state.CurrentAgent
	s.SupervisionActive = state.SupervisionActive

	start := len(state.Messages) - 3
	if start < 0 {
		start = 0
	}
	for _, msg := range state.Messages[start:] {
		s.RecentMessages = append(s.RecentMessages, MessagePreview{
			Role:    msg.Role,
			Name:    msg.Name,
			Content: truncatePreview(msg.Content),
		})
	}
	return s
}

func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
