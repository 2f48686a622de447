package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-analyzer/internal/config"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// contentGenerator genai.Models 中用到的方法
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// visionMIMETypes Gemini 可以直接读取的附件类型
var visionMIMETypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
}

// GeminiProvider 通过 Google GenAI SDK 调用 Gemini，支持文本和内联文档
type GeminiProvider struct {
	models       contentGenerator
	defaultModel string
	genConfig    *genai.GenerateContentConfig
	logger       zerolog.Logger
}

// GeminiOption Gemini provider 配置选项
type GeminiOption func(*GeminiProvider)

// WithGeminiLogger 配置日志记录器
func WithGeminiLogger(logger zerolog.Logger) GeminiOption {
	return func(g *GeminiProvider) {
		g.logger = logger
	}
}

// NewGeminiProvider 创建 Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string, cfg config.AnalysisConfig, options ...GeminiOption) (*GeminiProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiProvider(client.Models, cfg, options...), nil
}

func newGeminiProvider(models contentGenerator, cfg config.AnalysisConfig, options ...GeminiOption) *GeminiProvider {
	g := &GeminiProvider{
		models:       models,
		defaultModel: cfg.TextModel,
		genConfig:    GenerationConfig(cfg),
		logger:       zerolog.Nop(),
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// GenerationConfig 由分析配置生成调用参数，安全过滤拦截中等及以上风险
func GenerationConfig(cfg config.AnalysisConfig) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		TopP:            genai.Ptr(cfg.TopP),
		TopK:            genai.Ptr(cfg.TopK),
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	for _, category := range []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryHarassment,
	} {
		gc.SafetySettings = append(gc.SafetySettings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return gc
}

// Generate 实现 Provider 接口。模型没有返回文本时返回空串，由调用方按解析失败处理
func (g *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	if g == nil || g.models == nil {
		return "", Permanent(errors.New("gemini provider is not initialized"))
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", Permanent(errors.New("prompt must not be empty"))
	}

	model := req.Model
	if model == "" {
		model = g.defaultModel
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	if req.Document != nil {
		if !visionMIMETypes[req.Document.MIMEType] {
			return "", Permanent(fmt.Errorf("%w: %s", ErrVisionUnsupported, req.Document.MIMEType))
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			Data:     req.Document.Data,
			MIMEType: req.Document.MIMEType,
		}})
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	resp, err := g.models.GenerateContent(ctx, model, contents, g.genConfig)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		g.logger.Warn().Str("model", model).Str("block_reason", string(resp.PromptFeedback.BlockReason)).Msg("Gemini 拦截了请求")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
		// 只取第一个有内容的候选
		if builder.Len() > 0 {
			break
		}
	}

	g.logger.Debug().Str("model", model).Int("response_length", builder.Len()).Msg("Gemini 调用完成")
	return builder.String(), nil
}
