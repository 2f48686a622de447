package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWaiter struct {
	waits int
	err   error
}

func (w *countingWaiter) Wait(ctx context.Context) error {
	w.waits++
	return w.err
}

func TestRateLimitedProviderWaitsBeforeEachCall(t *testing.T) {
	w := &countingWaiter{}
	next := ProviderFunc(func(ctx context.Context, req Request) (string, error) { return "ok", nil })
	p := &RateLimitedProvider{next: next, limiter: w}

	for i := 0; i < 3; i++ {
		text, err := p.Generate(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	}
	assert.Equal(t, 3, w.waits)
}

func TestRateLimitedProviderPropagatesWaitError(t *testing.T) {
	called := false
	next := ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		called = true
		return "", nil
	})
	p := &RateLimitedProvider{next: next, limiter: &countingWaiter{err: context.Canceled}}

	_, err := p.Generate(context.Background(), Request{})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called)
}

func TestNewRateLimitedProviderDisabled(t *testing.T) {
	next := ProviderFunc(func(ctx context.Context, req Request) (string, error) { return "", nil })
	_, wrapped := NewRateLimitedProvider(next, 0).(*RateLimitedProvider)
	assert.False(t, wrapped, "qpm 为 0 时不应包装")

	_, wrapped = NewRateLimitedProvider(next, 60).(*RateLimitedProvider)
	assert.True(t, wrapped)
}
