package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultSystemPrompt 文本分析时的系统消息
const DefaultSystemPrompt = "You are an expert HR analyst. Always answer with a single valid JSON object."

// EinoProvider 把任意 eino 聊天模型适配为 Provider，只支持纯文本请求
type EinoProvider struct {
	chatModel    model.BaseChatModel
	systemPrompt string
	options      []model.Option
}

// NewEinoProvider 创建 provider，systemPrompt 为空时不发送系统消息
func NewEinoProvider(chatModel model.BaseChatModel, systemPrompt string, options ...model.Option) *EinoProvider {
	return &EinoProvider{chatModel: chatModel, systemPrompt: systemPrompt, options: options}
}

// Generate 实现 Provider 接口
func (p *EinoProvider) Generate(ctx context.Context, req Request) (string, error) {
	if p == nil || p.chatModel == nil {
		return "", Permanent(errors.New("chat model is not initialized"))
	}
	if req.Document != nil {
		return "", Permanent(ErrVisionUnsupported)
	}

	messages := make([]*schema.Message, 0, 2)
	if p.systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(p.systemPrompt))
	}
	messages = append(messages, schema.UserMessage(req.Prompt))

	opts := append([]model.Option{}, p.options...)
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}

	resp, err := p.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("chat model generate: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}
