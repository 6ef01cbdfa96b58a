package agent

import (
	"fmt"
	"sync"

	"github.com/BaSui01/coordflow/types"
)

// Registry 工作者注册表
// WorkerKind → Worker 的显式映射：路由穷尽且可静态检查，
// 未注册/未识别的类型回落到 general_agent。
type Registry struct {
	mu      sync.RWMutex
	workers map[types.WorkerKind]Worker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[types.WorkerKind]Worker),
	}
}

// Register installs a worker under its kind, replacing any previous one.
func (r *Registry) Register(w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.Kind()] = w
}

// Lookup returns the worker for kind, falling back to the general worker
// for unknown kinds. An error is returned only when no fallback exists.
func (r *Registry) Lookup(kind types.WorkerKind) (Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if w, ok := r.workers[kind]; ok {
		return w, nil
	}
	if w, ok := r.workers[types.WorkerGeneral]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("no worker registered for kind %q and no general fallback", kind)
}

// Kinds returns the registered worker kinds.
func (r *Registry) Kinds() []types.WorkerKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]types.WorkerKind, 0, len(r.workers))
	for k := range r.workers {
		kinds = append(kinds, k)
	}
	return kinds
}
