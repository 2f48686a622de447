package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

const (
	// DefaultQwenAPIURL DashScope 的 OpenAI 兼容接口
	DefaultQwenAPIURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModel    = "qwen-plus"
	maxLoggedBodyLength = 500
)

// QwenChatModel 通过 OpenAI 兼容接口调用通义千问，实现 eino 的 model.BaseChatModel
type QwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	defaults   model.Options
	logger     zerolog.Logger
}

// QwenOption 通义千问模型配置选项
type QwenOption func(*QwenChatModel)

// WithQwenHTTPClient 替换 HTTP 客户端
func WithQwenHTTPClient(client *http.Client) QwenOption {
	return func(q *QwenChatModel) {
		q.httpClient = client
	}
}

// WithQwenLogger 配置日志记录器
func WithQwenLogger(logger zerolog.Logger) QwenOption {
	return func(q *QwenChatModel) {
		q.logger = logger
	}
}

// WithQwenDefaults 设置默认的采样参数，调用时的 model.Option 会覆盖它们
func WithQwenDefaults(temperature, topP float32, maxTokens int) QwenOption {
	return func(q *QwenChatModel) {
		q.defaults.Temperature = &temperature
		q.defaults.TopP = &topP
		if maxTokens > 0 {
			q.defaults.MaxTokens = &maxTokens
		}
	}
}

// NewQwenChatModel 创建通义千问模型
func NewQwenChatModel(apiKey, modelName, apiURL string, options ...QwenOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultQwenModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultQwenAPIURL
	}

	q := &QwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, option := range options {
		option(q)
	}
	return q, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate 实现 model.BaseChatModel 接口
func (q *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	defaults := q.defaults
	defaults.Model = &q.modelName
	options := model.GetCommonOptions(&defaults, opts...)

	payload := chatCompletionRequest{
		Model:       q.modelName,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}
	if options.Model != nil && *options.Model != "" {
		payload.Model = *options.Model
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		payload.Messages = append(payload.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("序列化请求体失败: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, q.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(fmt.Errorf("创建 HTTP 请求失败: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	q.logger.Debug().Str("model", payload.Model).Int("messages", len(payload.Messages)).Msg("发送通义千问请求")

	httpResp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: httpResp.StatusCode, Body: truncateBody(respBody)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, Permanent(fmt.Errorf("反序列化 API 响应失败: %w", err))
	}
	if len(completion.Choices) == 0 {
		return nil, Permanent(fmt.Errorf("API 返回空选项: %s", truncateBody(respBody)))
	}

	choice := completion.Choices[0].Message
	result := &schema.Message{Role: schema.Assistant}
	if choice.Role != "" {
		result.Role = schema.RoleType(choice.Role)
	}
	if choice.Content != nil {
		result.Content = *choice.Content
	}
	return result, nil
}

// Stream 实现 model.BaseChatModel 接口，分析流程只需要完整响应
func (q *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("QwenChatModel 不支持流式输出")
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > maxLoggedBodyLength {
		return s[:maxLoggedBodyLength] + "..."
	}
	return s
}

var _ model.BaseChatModel = (*QwenChatModel)(nil)
