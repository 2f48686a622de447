package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"resume-analyzer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestRecordError(t *testing.T) {
	sr, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, errors.New("模型调用失败"), ErrorTypeProvider, attribute.Int("attempts", 3))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "provider", attrs["error.type"].AsString())
	assert.Equal(t, int64(3), attrs["attempts"].AsInt64())
	assert.Len(t, spans[0].Events(), 1, "应记录一个异常事件")
}

func TestRecordErrorNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("x"), ErrorTypeInternal)
	})
	sr, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil, ErrorTypeInternal)
	span.End()
	assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code, "nil 错误不应改变状态")
}

func TestRecordHTTPErrorCategory(t *testing.T) {
	sr, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordHTTPError(span, errors.New("bad gateway"), 502)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, "server_error", attrs["error.category"].AsString())
	assert.Equal(t, int64(502), attrs["http.status_code"].AsInt64())
}

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
}

func TestSafeAttributeValue(t *testing.T) {
	assert.Equal(t, "jo"+strings.Repeat("*", 12)+"om", SafeAttributeValue("candidate.email", "john@example.com", 100))
	assert.Equal(t, "short", SafeAttributeValue("document.key", "short", 100))
	assert.Equal(t, "ab...yz", SafeAttributeValue("document.key", "abcdefghijklmnopqrstuvwxyz", 7))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
	assert.Equal(t, "简历...内容", TruncateString("简历中有很多内容", 7))
}

func TestInitProviderDisabled(t *testing.T) {
	p, err := InitProvider(context.Background(), config.TracingConfig{Enabled: false}, "test")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NoError(t, p.Shutdown(context.Background()), "未启用时关闭不应报错")
}
