package llm

import (
	"context"
	"errors"
	"time"

	"resume-analyzer/internal/config"
	"resume-analyzer/internal/tracing"
	"resume-analyzer/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = time.Second
)

var tracer = tracing.Tracer("llm")

// sleep 在重试之间等待，上下文结束时提前返回。测试中替换为立即返回
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Invoker 对单次 provider 调用做有限次数的指数退避重试
type Invoker struct {
	provider       Provider
	maxAttempts    int
	baseBackoff    time.Duration
	attemptTimeout time.Duration
	logger         zerolog.Logger
}

// InvokerOption 调用器配置选项
type InvokerOption func(*Invoker)

// WithMaxAttempts 设置最大尝试次数（含首次）
func WithMaxAttempts(n int) InvokerOption {
	return func(i *Invoker) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// WithBaseBackoff 设置首次重试前的等待时间，之后每次翻倍
func WithBaseBackoff(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		if d >= 0 {
			i.baseBackoff = d
		}
	}
}

// WithAttemptTimeout 设置单次调用超时，0 表示不限制
func WithAttemptTimeout(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		i.attemptTimeout = d
	}
}

// WithInvokerLogger 配置日志记录器
func WithInvokerLogger(logger zerolog.Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// OptionsFromConfig 根据分析配置生成调用器选项
func OptionsFromConfig(cfg config.AnalysisConfig) []InvokerOption {
	return []InvokerOption{
		WithMaxAttempts(cfg.MaxAttempts),
		WithBaseBackoff(config.GetDuration(cfg.BaseBackoff, DefaultBaseBackoff)),
		WithAttemptTimeout(config.GetDuration(cfg.RequestTimeout, 0)),
	}
}

// NewInvoker 创建调用器，默认最多 3 次，退避 1s、2s
func NewInvoker(provider Provider, options ...InvokerOption) *Invoker {
	i := &Invoker{
		provider:    provider,
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
		logger:      zerolog.Nop(),
	}
	for _, option := range options {
		option(i)
	}
	return i
}

// Invoke 调用 provider 并返回原始文本。可重试错误最多尝试 maxAttempts 次，
// 重试耗尽或遇到不可重试错误时返回 *types.ProviderError
func (i *Invoker) Invoke(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "Invoker.Invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.purpose", req.Purpose),
		attribute.String("llm.model", req.Model),
		attribute.Bool("llm.vision", req.Document != nil),
	)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		attempts = attempt
		text, err := i.attempt(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.Int("llm.attempts", attempt))
			if attempt > 1 {
				i.logger.Info().Str("purpose", req.Purpose).Int("attempt", attempt).Msg("模型调用重试成功")
			}
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == i.maxAttempts {
			break
		}

		delay := i.baseBackoff * time.Duration(1<<uint(attempt-1))
		i.logger.Warn().
			Err(err).
			Str("purpose", req.Purpose).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("模型调用失败，准备重试")
		if waitErr := sleep(ctx, delay); waitErr != nil {
			lastErr = errors.Join(lastErr, waitErr)
			break
		}
	}

	span.SetAttributes(attribute.Int("llm.attempts", attempts))
	tracing.RecordError(span, lastErr, tracing.ErrorTypeProvider)
	i.logger.Error().Err(lastErr).Str("purpose", req.Purpose).Int("attempts", attempts).Msg("模型调用失败")
	return "", types.NewProviderError(req.Purpose, attempts, lastErr)
}

func (i *Invoker) attempt(ctx context.Context, req Request) (string, error) {
	if i.provider == nil {
		return "", Permanent(errors.New("provider not configured"))
	}
	if i.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.attemptTimeout)
		defer cancel()
	}
	return i.provider.Generate(ctx, req)
}
