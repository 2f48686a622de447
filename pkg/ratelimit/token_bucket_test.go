package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowConsumesCapacity(t *testing.T) {
	tb := NewTokenBucket(60, 2)
	frozen := time.Now()
	tb.now = func() time.Time { return frozen }
	tb.lastRefillTime = frozen

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "容量耗尽后应拒绝请求")

	// 60 QPM 即每秒一个令牌
	frozen = frozen.Add(time.Second)
	assert.True(t, tb.Allow(), "经过一秒后应补充一个令牌")
}

func TestTokenBucketDefaultCapacity(t *testing.T) {
	assert.Equal(t, 30, NewTokenBucket(60, 0).Available())
	assert.Equal(t, 1, NewTokenBucket(1, 0).Available(), "容量至少为1")
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "上下文超时时应返回错误")
}

func TestTokenBucketWaitImmediate(t *testing.T) {
	tb := NewTokenBucket(600, 5)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, tb.Wait(ctx))
	}
}
