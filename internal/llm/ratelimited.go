package llm

import (
	"context"
	"fmt"

	"resume-analyzer/pkg/ratelimit"
)

// waiter 令牌桶中用到的方法
type waiter interface {
	Wait(ctx context.Context) error
}

var _ waiter = (*ratelimit.TokenBucket)(nil)

// RateLimitedProvider 每次调用前从令牌桶取一个令牌
type RateLimitedProvider struct {
	next    Provider
	limiter waiter
}

// NewRateLimitedProvider 包装 provider，qpm <= 0 时直接返回原 provider
func NewRateLimitedProvider(next Provider, qpm int) Provider {
	if qpm <= 0 {
		return next
	}
	return &RateLimitedProvider{next: next, limiter: ratelimit.NewTokenBucket(qpm, 0)}
}

// Generate 实现 Provider 接口
func (p *RateLimitedProvider) Generate(ctx context.Context, req Request) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("等待限流令牌失败: %w", err)
	}
	return p.next.Generate(ctx, req)
}
