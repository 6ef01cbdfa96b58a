package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Observer 每次调用结束后回调，用于指标上报（status: ok/error）。
type Observer func(provider, status string)

// ThrottledProvider 对任意 Provider 施加本地限流与单次调用超时。
// 规约基线没有超时语义；超时为可选配置，零值表示不限制。
type ThrottledProvider struct {
	inner    Provider
	limiter  *rate.Limiter
	timeout  time.Duration
	observer Observer
	logger   *zap.Logger
}

// ThrottleOption configures a ThrottledProvider.
type ThrottleOption func(*ThrottledProvider)

// WithTimeout sets the per-call timeout (0 = unbounded).
func WithTimeout(d time.Duration) ThrottleOption {
	return func(t *ThrottledProvider) { t.timeout = d }
}

// WithObserver sets the per-call result callback.
func WithObserver(o Observer) ThrottleOption {
	return func(t *ThrottledProvider) { t.observer = o }
}

// NewThrottledProvider wraps inner with a token-bucket limiter.
// ratePerSecond <= 0 disables throttling.
func NewThrottledProvider(inner Provider, ratePerSecond float64, logger *zap.Logger, opts ...ThrottleOption) *ThrottledProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	t := &ThrottledProvider{
		inner:   inner,
		limiter: limiter,
		logger:  logger.With(zap.String("component", "llm_throttle"), zap.String("provider", inner.Name())),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *ThrottledProvider) Name() string { return t.inner.Name() }

func (t *ThrottledProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			t.observe("error")
			return nil, &Error{Code: ErrRateLimited, Message: "rate limit wait aborted: " + err.Error(), Provider: t.Name()}
		}
	}
	callCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := t.inner.Completion(callCtx, req)
	if err != nil {
		t.observe("error")
		t.logger.Warn("completion failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, &Error{Code: ErrUpstreamTimeout, Message: err.Error(), Retryable: true, Provider: t.Name()}
		}
		return nil, err
	}
	t.observe("ok")
	return resp, nil
}

func (t *ThrottledProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			t.observe("error")
			return nil, &Error{Code: ErrRateLimited, Message: "rate limit wait aborted: " + err.Error(), Provider: t.Name()}
		}
	}
	ch, err := t.inner.Stream(ctx, req)
	if err != nil {
		t.observe("error")
		return nil, err
	}
	t.observe("ok")
	return ch, nil
}

func (t *ThrottledProvider) observe(status string) {
	if t.observer != nil {
		t.observer(t.Name(), status)
	}
}
