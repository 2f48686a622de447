package llm

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"resume-analyzer/internal/config"
	"resume-analyzer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// flakyProvider 前 failures 次返回 err，之后返回 text
type flakyProvider struct {
	failures int32
	err      error
	text     string
	calls    int32
}

func (f *flakyProvider) Generate(ctx context.Context, req Request) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return "", f.err
	}
	return f.text, nil
}

// stubSleep 记录等待时间且不真正等待
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = original })
	return &delays
}

func TestInvokeSucceedsAfterTwoTransientFailures(t *testing.T) {
	delays := stubSleep(t)
	p := &flakyProvider{failures: 2, err: Transient(errors.New("503")), text: `{"ok":true}`}

	text, err := NewInvoker(p).Invoke(context.Background(), Request{Purpose: "text-analysis", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&p.calls), "第三次成功后不应再调用")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays, "退避应为 1s、2s")
}

func TestInvokeExhaustsRetries(t *testing.T) {
	delays := stubSleep(t)
	cause := Transient(errors.New("upstream unavailable"))
	p := &flakyProvider{failures: 10, err: cause}

	_, err := NewInvoker(p).Invoke(context.Background(), Request{Purpose: "vision-analysis", Prompt: "p"})
	require.Error(t, err)

	var providerErr *types.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 3, providerErr.Attempts)
	assert.Equal(t, "vision-analysis", providerErr.Op)
	assert.ErrorIs(t, err, types.ErrProviderFailed)
	assert.ErrorIs(t, err, cause, "应保留最后一次的错误")
	assert.Equal(t, int32(3), atomic.LoadInt32(&p.calls))
	assert.Len(t, *delays, 2, "最后一次失败后不应再等待")
}

func TestInvokeDoesNotRetryPermanentError(t *testing.T) {
	delays := stubSleep(t)
	p := &flakyProvider{failures: 10, err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}}

	_, err := NewInvoker(p).Invoke(context.Background(), Request{Purpose: "text-analysis"})
	var providerErr *types.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 1, providerErr.Attempts)
	assert.Empty(t, *delays)
}

func TestInvokeStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	original := sleep
	t.Cleanup(func() { sleep = original })

	ctx, cancel := context.WithCancel(context.Background())
	sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	p := &flakyProvider{failures: 10, err: Transient(errors.New("busy"))}

	_, err := NewInvoker(p).Invoke(ctx, Request{Purpose: "text-analysis"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))
}

func TestInvokeAttemptTimeoutIsRetried(t *testing.T) {
	stubSleep(t)
	var calls int32
	p := ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "done", nil
	})

	text, err := NewInvoker(p, WithAttemptTimeout(10*time.Millisecond)).Invoke(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInvokeWithoutProvider(t *testing.T) {
	_, err := NewInvoker(nil).Invoke(context.Background(), Request{Purpose: "x"})
	assert.ErrorIs(t, err, types.ErrProviderFailed)
}

func TestOptionsFromConfig(t *testing.T) {
	inv := NewInvoker(nil, OptionsFromConfig(config.AnalysisConfig{
		MaxAttempts:    5,
		BaseBackoff:    "250ms",
		RequestTimeout: "30s",
	})...)
	assert.Equal(t, 5, inv.maxAttempts)
	assert.Equal(t, 250*time.Millisecond, inv.baseBackoff)
	assert.Equal(t, 30*time.Second, inv.attemptTimeout)

	defaults := NewInvoker(nil, OptionsFromConfig(config.AnalysisConfig{BaseBackoff: "bogus"})...)
	assert.Equal(t, DefaultMaxAttempts, defaults.maxAttempts)
	assert.Equal(t, DefaultBaseBackoff, defaults.baseBackoff)
}

func TestProbe(t *testing.T) {
	ok := Probe(context.Background(), ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		return `{"test": "success", "status": "working"}`, nil
	}), "gemini-1.5-flash")
	assert.True(t, ok.Available)
	assert.Equal(t, "gemini-1.5-flash", ok.Model)
	assert.Equal(t, "Service working correctly", ok.Status)

	failed := Probe(context.Background(), ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		return "", errors.New("api key invalid")
	}), "m")
	assert.False(t, failed.Available)
	assert.Equal(t, "api key invalid", failed.Error)

	assert.False(t, Probe(context.Background(), nil, "").Available)
}
