package prompt

import (
	"context"
	"errors"
	"fmt"

	"resume-analyzer/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Purpose 提示词用途
type Purpose string

const (
	PurposeTextAnalysis   Purpose = "text-analysis"
	PurposeVisionAnalysis Purpose = "vision-analysis"
	PurposeQAAssessment   Purpose = "qa-assessment"
)

// Purposes 返回全部提示词用途
func Purposes() []Purpose {
	return []Purpose{PurposeTextAnalysis, PurposeVisionAnalysis, PurposeQAAssessment}
}

// ErrTemplateNotFound 存储中没有该用途的模板
var ErrTemplateNotFound = errors.New("prompt template not found")

var tracer = tracing.Tracer("prompt")

// Provider 按用途返回已填充变量、可直接发送的提示词
type Provider interface {
	Render(ctx context.Context, purpose Purpose, vars map[string]string) (string, error)
}

// Template 存储中的一个提示词模板
type Template struct {
	Name       string
	Purpose    Purpose
	Content    string
	Version    string
	CustomerID string // 为空表示全局模板
	Key        string // 存储键，用于统计使用次数
}

// Store 提示词模板存储
type Store interface {
	// Lookup 先查客户专属的默认模板，再查全局默认模板
	Lookup(ctx context.Context, purpose Purpose, customerID string) (Template, error)
	// RecordUsage 记录一次模板使用
	RecordUsage(ctx context.Context, tpl Template) error
}

// Renderer 从存储读取模板，失败或缺失时回退到内置模板
type Renderer struct {
	store      Store
	customerID string
	logger     zerolog.Logger
}

// RendererOption 渲染器配置选项
type RendererOption func(*Renderer)

// WithStore 配置模板存储
func WithStore(store Store) RendererOption {
	return func(r *Renderer) {
		r.store = store
	}
}

// WithCustomerID 配置客户ID，用于查找客户专属模板
func WithCustomerID(customerID string) RendererOption {
	return func(r *Renderer) {
		r.customerID = customerID
	}
}

// WithLogger 配置日志记录器
func WithLogger(logger zerolog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// NewRenderer 创建渲染器，未配置存储时只使用内置模板
func NewRenderer(options ...RendererOption) *Renderer {
	r := &Renderer{logger: zerolog.Nop()}
	for _, option := range options {
		option(r)
	}
	return r
}

// Render 实现 Provider 接口
func (r *Renderer) Render(ctx context.Context, purpose Purpose, vars map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "Prompt.Render")
	defer span.End()
	span.SetAttributes(attribute.String("prompt.purpose", string(purpose)))

	fallback, ok := builtinTemplates[purpose]
	if !ok {
		err := fmt.Errorf("未知的提示词用途: %s", purpose)
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return "", err
	}

	if r.store != nil {
		rendered, err := r.renderStored(ctx, purpose, vars)
		if err == nil {
			span.SetAttributes(attribute.String("prompt.source", "store"))
			return rendered, nil
		}
		if errors.Is(err, ErrTemplateNotFound) {
			r.logger.Warn().Str("purpose", string(purpose)).Msg("存储中没有提示词模板，使用内置模板")
		} else {
			r.logger.Error().Err(err).Str("purpose", string(purpose)).Msg("读取提示词模板失败，使用内置模板")
		}
	}

	span.SetAttributes(attribute.String("prompt.source", "builtin"))
	rendered, err := Format(fallback, vars)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return "", fmt.Errorf("渲染内置提示词 %s 失败: %w", purpose, err)
	}
	return rendered, nil
}

func (r *Renderer) renderStored(ctx context.Context, purpose Purpose, vars map[string]string) (string, error) {
	tpl, err := r.store.Lookup(ctx, purpose, r.customerID)
	if err != nil {
		return "", err
	}
	if err := r.store.RecordUsage(ctx, tpl); err != nil {
		r.logger.Warn().Err(err).Str("template", tpl.Name).Msg("记录提示词使用次数失败")
	}
	rendered, err := Format(tpl.Content, vars)
	if err != nil {
		return "", fmt.Errorf("渲染提示词 %s 失败: %w", tpl.Name, err)
	}
	r.logger.Info().Str("template", tpl.Name).Str("purpose", string(purpose)).Msg("使用存储中的提示词模板")
	return rendered, nil
}

// Builtin 返回某用途的内置模板
func Builtin(purpose Purpose) (string, bool) {
	tpl, ok := builtinTemplates[purpose]
	return tpl, ok
}
