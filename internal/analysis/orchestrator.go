package analysis

import (
	"context"
	"fmt"
	"time"

	"resume-analyzer/internal/llm"
	"resume-analyzer/internal/tracing"
	"resume-analyzer/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// RoutingThreshold 提取置信度低于该值时改走视觉分析
const RoutingThreshold = 0.7

var tracer = tracing.Tracer("analysis")

// Invoker 带重试的模型调用
type Invoker interface {
	Invoke(ctx context.Context, req llm.Request) (string, error)
}

// DocumentLoader 视觉分析时读取原始文档
type DocumentLoader interface {
	Load(ctx context.Context, ref types.DocumentRef) ([]byte, types.Format, error)
}

// ReadinessAssessor 面试问题准备度评估
type ReadinessAssessor interface {
	Assess(ctx context.Context, analysis types.AnalysisResult, questions []types.JobQuestion) types.ReadinessAssessment
}

// Orchestrator 根据提取质量选择分析路径，调用模型并整理结果
type Orchestrator struct {
	builder   *Builder
	invoker   Invoker
	loader    DocumentLoader
	readiness ReadinessAssessor
	threshold float64
	logger    zerolog.Logger
}

// Option 编排器配置选项
type Option func(*Orchestrator)

// WithLogger 配置日志记录器
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithReadiness 岗位带面试问题时串联准备度评估
func WithReadiness(assessor ReadinessAssessor) Option {
	return func(o *Orchestrator) {
		o.readiness = assessor
	}
}

// WithRoutingThreshold 覆盖视觉分析的置信度阈值
func WithRoutingThreshold(threshold float64) Option {
	return func(o *Orchestrator) {
		if threshold > 0 && threshold <= 1 {
			o.threshold = threshold
		}
	}
}

// NewOrchestrator 创建分析编排器
func NewOrchestrator(builder *Builder, invoker Invoker, loader DocumentLoader, options ...Option) *Orchestrator {
	o := &Orchestrator{
		builder:   builder,
		invoker:   invoker,
		loader:    loader,
		threshold: RoutingThreshold,
		logger:    zerolog.Nop(),
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// Route 提取结果需要兜底或置信度不足时走视觉分析，否则走文本分析
func Route(extraction types.ExtractionResult, threshold float64) types.ProcessingMethod {
	if extraction.NeedsFallback || extraction.Confidence < threshold {
		return types.MethodVisionAnalysis
	}
	return types.MethodTextAnalysis
}

// Analyze 分析一份简历。模型调用失败时返回 *types.ProviderError；
// 模型输出无法解析时不返回错误，而是返回 failed-parse 降级结果
func (o *Orchestrator) Analyze(ctx context.Context, extraction types.ExtractionResult, ref types.DocumentRef, job *types.JobContext) (types.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Analyze")
	defer span.End()

	method := Route(extraction, o.threshold)
	span.SetAttributes(
		attribute.String("document.uri", tracing.SafeAttributeValue("document.uri", ref.URI(), tracing.DefaultMaxLength)),
		attribute.String("analysis.method", string(method)),
		attribute.Float64("extraction.confidence", extraction.Confidence),
		attribute.Bool("analysis.with_job", job != nil),
	)
	o.logger.Info().
		Str("document", ref.URI()).
		Str("method", string(method)).
		Float64("confidence", extraction.Confidence).
		Bool("needs_fallback", extraction.NeedsFallback).
		Msg("选择分析路径")

	req, err := o.buildRequest(ctx, method, extraction, ref, job)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return types.AnalysisResult{}, err
	}

	raw, err := o.invoker.Invoke(ctx, req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeProvider)
		return types.AnalysisResult{}, err
	}

	result := o.parse(raw, method, job != nil)
	if result.Failed() {
		span.SetAttributes(attribute.String("analysis.parsing_error", tracing.TruncateString(result.ParsingError, tracing.DefaultMaxLength)))
	}

	if job != nil && len(job.Questions) > 0 && o.readiness != nil {
		o.logger.Info().Int("questions", len(job.Questions)).Msg("评估面试问题准备度")
		assessment := o.readiness.Assess(ctx, result, job.Questions)
		result.Readiness = &assessment
	}

	span.SetAttributes(
		attribute.String("analysis.result_method", string(result.ProcessingMethod)),
		attribute.Float64("analysis.overall_score", result.OverallScore),
	)
	o.logger.Info().
		Str("document", ref.URI()).
		Float64("score", result.OverallScore).
		Str("method", string(result.ProcessingMethod)).
		Msg("简历分析完成")
	return result, nil
}

func (o *Orchestrator) buildRequest(ctx context.Context, method types.ProcessingMethod, extraction types.ExtractionResult, ref types.DocumentRef, job *types.JobContext) (llm.Request, error) {
	if method == types.MethodTextAnalysis {
		return o.builder.TextRequest(ctx, extraction.Text, job)
	}

	if o.loader == nil {
		return llm.Request{}, fmt.Errorf("视觉分析需要读取原始文档，但未配置文档来源")
	}
	data, format, err := o.loader.Load(ctx, ref)
	if err != nil {
		return llm.Request{}, fmt.Errorf("读取视觉分析文档失败: %w", err)
	}
	return o.builder.VisionRequest(ctx, llm.Attachment{
		Data:     data,
		MIMEType: format.MIMEType(),
		Name:     ref.URI(),
	}, job)
}

// parse 解析模型输出，失败时记录日志并返回降级结果
func (o *Orchestrator) parse(raw string, method types.ProcessingMethod, withJob bool) types.AnalysisResult {
	parsed, err := llm.DecodeObject(raw)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("method", string(method)).
			Str("response", tracing.TruncateString(raw, tracing.DefaultMaxLength)).
			Msg("模型输出无法解析为JSON，返回降级结果")
		return DegradedResult(err, withJob)
	}

	result, skipped := BackfillResult(parsed, withJob)
	if len(skipped) > 0 {
		o.logger.Warn().Strs("fields", skipped).Msg("部分字段类型不符，已使用默认值")
	}
	result.ProcessingMethod = method
	result.CreatedAt = time.Now()
	return result
}
