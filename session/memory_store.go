package session

import (
	"context"
	"sync"

	"github.com/BaSui01/coordflow/types"
)

// MemoryStore 内存会话存储
// 适合开发和测试，数据随进程消失。Load/Save 均做深拷贝，
// 调用方对取回状态的修改不会污染存储内容。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.CoordinationState
	closed   bool
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*types.CoordinationState),
	}
}

// Load returns a deep copy of the stored state, or a fresh empty state for
// an unknown thread.
func (s *MemoryStore) Load(ctx context.Context, threadID string) (*types.CoordinationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if state, ok := s.sessions[threadID]; ok {
		return state.Clone(), nil
	}
	return types.NewCoordinationState(), nil
}

// Save stores a deep copy of the state.
func (s *MemoryStore) Save(ctx context.Context, threadID string, state *types.CoordinationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if threadID == "" || state == nil {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.sessions[threadID] = state.Clone()
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
