package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "显式标记", err: Transient(errors.New("x")), want: true},
		{name: "永久标记优先", err: Permanent(errors.New("timeout")), want: false},
		{name: "包装后的标记", err: fmt.Errorf("call: %w", Transient(errors.New("x"))), want: true},
		{name: "超时", err: fmt.Errorf("attempt: %w", context.DeadlineExceeded), want: true},
		{name: "取消", err: context.Canceled, want: false},
		{name: "genai 503", err: genai.APIError{Code: http.StatusServiceUnavailable}, want: true},
		{name: "genai 429", err: fmt.Errorf("generate content: %w", genai.APIError{Code: http.StatusTooManyRequests}), want: true},
		{name: "genai 408", err: genai.APIError{Code: http.StatusRequestTimeout}, want: true},
		{name: "genai 400", err: genai.APIError{Code: http.StatusBadRequest}, want: false},
		{name: "genai 403", err: &genai.APIError{Code: http.StatusForbidden}, want: false},
		{name: "兼容接口 502", err: &HTTPStatusError{StatusCode: http.StatusBadGateway}, want: true},
		{name: "兼容接口 401", err: &HTTPStatusError{StatusCode: http.StatusUnauthorized, Body: "rate limit"}, want: false},
		{name: "连接重置", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "中文限流信息", err: errors.New("服务器繁忙，请稍后再试"), want: true},
		{name: "普通错误", err: errors.New("invalid prompt"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
