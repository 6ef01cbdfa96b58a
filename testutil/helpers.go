// Package testutil 提供 coordflow 测试的共享工具和辅助函数。
// 各包的单元测试应优先复用此包，避免重复实现相似的测试基础设施。
package testutil

import (
	"context"
	"testing"
	"time"
)

// TestContext 返回带超时的测试上下文，自动注册 Cleanup 防止泄漏。
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文。
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文。
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
