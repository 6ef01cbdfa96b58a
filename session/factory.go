package session

import (
	"fmt"

	"go.uber.org/zap"
)

// Open 按配置创建会话存储
// 未指定后端时默认内存实现。
func Open(cfg StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(cfg.Redis, logger)
	case BackendDatabase:
		return NewGormStore(cfg.Database, logger)
	default:
		return nil, fmt.Errorf("unknown session backend: %q", cfg.Backend)
	}
}
