package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Attachment 视觉分析时随提示词一起发送的原始文档
type Attachment struct {
	Data     []byte
	MIMEType string
	Name     string
}

// Request 一次模型调用
type Request struct {
	Purpose  string      // 用于日志和错误中的操作名，例如 text-analysis
	Model    string      // 为空时使用 provider 的默认模型
	Prompt   string
	Document *Attachment // 非空表示视觉分析
}

// Provider 外部分析服务，返回模型的原始文本输出
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderFunc 把函数适配为 Provider
type ProviderFunc func(ctx context.Context, req Request) (string, error)

// Generate 实现 Provider 接口
func (f ProviderFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrVisionUnsupported provider 不支持文档附件
var ErrVisionUnsupported = errors.New("provider does not accept document attachments")

// TransientError 标记可重试的错误
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient 把错误标记为可重试
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// PermanentError 标记不可重试的错误，优先于其他判断
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent 把错误标记为不可重试
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// HTTPStatusError 兼容 OpenAI 协议的服务返回了非 200 状态码
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("API 请求失败，状态码 %d: %s", e.StatusCode, e.Body)
}

// ProbeResult 服务可用性探测结果
type ProbeResult struct {
	Available    bool   `json:"available"`
	Model        string `json:"model,omitempty"`
	TestResponse string `json:"test_response,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

const probePrompt = "Return this exact JSON: {'test': 'success', 'status': 'working'}"

// Probe 发送一个简单提示词检查 provider 是否可用
func Probe(ctx context.Context, p Provider, model string) ProbeResult {
	if p == nil {
		return ProbeResult{Status: "Service initialization failed", Error: "provider not configured"}
	}
	text, err := p.Generate(ctx, Request{Purpose: "probe", Model: model, Prompt: probePrompt})
	if err != nil {
		return ProbeResult{Model: model, Status: "Service initialization failed", Error: err.Error()}
	}
	if utf8.RuneCountInString(text) > 100 {
		text = string([]rune(text)[:100]) + "..."
	}
	return ProbeResult{
		Available:    true,
		Model:        model,
		TestResponse: strings.TrimSpace(text),
		Status:       "Service working correctly",
	}
}
