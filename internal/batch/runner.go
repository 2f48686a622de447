// Package batch 以有限并发对多份简历执行分析，单个文档的失败不影响其他文档
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"resume-analyzer/internal/analysis"
	"resume-analyzer/internal/tracing"
	"resume-analyzer/internal/types"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency 同时进行的分析数量上限
const DefaultConcurrency = 3

var tracer = tracing.Tracer("batch")

// Analyzer 单个文档的分析
type Analyzer interface {
	Analyze(ctx context.Context, extraction types.ExtractionResult, ref types.DocumentRef, job *types.JobContext) (types.AnalysisResult, error)
}

// Notifier 批处理完成后接收汇总事件
type Notifier interface {
	NotifyBatch(ctx context.Context, run types.BatchRun) error
}

// Runner 批处理编排器。同一个 Runner 上的多次 Run 共享并发上限
type Runner struct {
	analyzer    Analyzer
	sem         *semaphore.Weighted
	concurrency int
	notifier    Notifier
	logger      zerolog.Logger
}

// Option 编排器配置选项
type Option func(*Runner)

// WithConcurrency 设置并发上限，n <= 0 时使用默认值
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithNotifier 配置完成事件通知
func WithNotifier(notifier Notifier) Option {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// WithLogger 配置日志记录器
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner 创建批处理编排器
func NewRunner(analyzer Analyzer, options ...Option) *Runner {
	r := &Runner{
		analyzer:    analyzer,
		concurrency: DefaultConcurrency,
		logger:      zerolog.Nop(),
	}
	for _, option := range options {
		option(r)
	}
	r.sem = semaphore.NewWeighted(int64(r.concurrency))
	return r
}

// Run 分析全部文档，返回的 Results 对每个输入键恰好有一个条目
func (r *Runner) Run(ctx context.Context, items map[string]types.BatchItem, job *types.JobContext) types.BatchRun {
	ctx, span := tracer.Start(ctx, "Runner.Run")
	defer span.End()

	run := types.BatchRun{
		ID:        newRunID(),
		Results:   make(map[string]types.AnalysisResult, len(items)),
		Attempted: len(items),
		StartedAt: time.Now(),
	}
	span.SetAttributes(
		attribute.String("batch.id", run.ID),
		attribute.Int("batch.size", len(items)),
		attribute.Int("batch.concurrency", r.concurrency),
	)
	r.logger.Info().Str("batch_id", run.ID).Int("documents", len(items)).Int("concurrency", r.concurrency).Msg("开始批量分析")

	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, key := range keys {
		item := items[key]
		g.Go(func() error {
			result := r.analyzeOne(ctx, key, item, job)
			mu.Lock()
			run.Results[key] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // 单项失败已转换为降级结果

	for _, result := range run.Results {
		if result.Failed() {
			run.Failed++
		} else {
			run.Succeeded++
		}
	}
	run.FinishedAt = time.Now()
	run.Elapsed = run.FinishedAt.Sub(run.StartedAt)

	span.SetAttributes(
		attribute.Int("batch.succeeded", run.Succeeded),
		attribute.Int("batch.failed", run.Failed),
	)
	r.logger.Info().
		Str("batch_id", run.ID).
		Int("succeeded", run.Succeeded).
		Int("failed", run.Failed).
		Dur("elapsed", run.Elapsed).
		Msg("批量分析完成")

	if r.notifier != nil {
		if err := r.notifier.NotifyBatch(ctx, run); err != nil {
			tracing.RecordPublishFailure(span, "batch.completed", err)
			r.logger.Error().Err(err).Str("batch_id", run.ID).Msg("发送批处理完成事件失败")
		}
	}
	return run
}

// analyzeOne 在信号量内分析一个文档，错误和 panic 都转换为降级结果
func (r *Runner) analyzeOne(ctx context.Context, key string, item types.BatchItem, job *types.JobContext) (result types.AnalysisResult) {
	withJob := job != nil
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("等待并发名额时被取消")
		return analysis.FailedResult(err, withJob)
	}
	defer r.sem.Release(1)

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			r.logger.Error().Err(err).Str("key", key).Msg("分析过程发生panic")
			result = analysis.FailedResult(err, withJob)
		}
	}()

	res, err := r.analyzer.Analyze(ctx, item.Extraction, item.Document, job)
	if err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("文档分析失败")
		return analysis.FailedResult(err, withJob)
	}
	return res
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return id.String()
}
