package analysis

import (
	"context"
	"fmt"

	"resume-analyzer/internal/llm"
	"resume-analyzer/internal/prompt"
	"resume-analyzer/internal/types"
)

// Builder 把提取文本或原始文档、加上可选的岗位上下文组装成模型请求
type Builder struct {
	prompts     prompt.Provider
	textModel   string
	visionModel string
}

// NewBuilder 创建请求构建器，模型名为空时由 provider 使用默认模型
func NewBuilder(prompts prompt.Provider, textModel, visionModel string) *Builder {
	return &Builder{prompts: prompts, textModel: textModel, visionModel: visionModel}
}

// TextRequest 文本分析请求
func (b *Builder) TextRequest(ctx context.Context, text string, job *types.JobContext) (llm.Request, error) {
	rendered, err := b.prompts.Render(ctx, prompt.PurposeTextAnalysis, map[string]string{
		"resume_text": text,
		"job_context": prompt.JobContextBlock(job),
	})
	if err != nil {
		return llm.Request{}, fmt.Errorf("构建文本分析提示词失败: %w", err)
	}
	return llm.Request{
		Purpose: string(types.MethodTextAnalysis),
		Model:   b.textModel,
		Prompt:  rendered,
	}, nil
}

// VisionRequest 视觉分析请求，文档作为附件随提示词发送
func (b *Builder) VisionRequest(ctx context.Context, doc llm.Attachment, job *types.JobContext) (llm.Request, error) {
	rendered, err := b.prompts.Render(ctx, prompt.PurposeVisionAnalysis, map[string]string{
		"job_context": prompt.JobContextBlock(job),
	})
	if err != nil {
		return llm.Request{}, fmt.Errorf("构建视觉分析提示词失败: %w", err)
	}
	return llm.Request{
		Purpose:  string(types.MethodVisionAnalysis),
		Model:    b.visionModel,
		Prompt:   rendered,
		Document: &doc,
	}, nil
}
