package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resume-analyzer/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHashClient struct {
	mock.Mock
}

func (m *mockHashClient) FormatKey(parts ...string) string {
	return "prompts:" + strings.Join(parts, ":")
}

func (m *mockHashClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if v := args.Get(0); v != nil {
		return v.(map[string]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHashClient) HSet(ctx context.Context, key string, values map[string]string) error {
	args := m.Called(ctx, key, values)
	return args.Error(0)
}

func (m *mockHashClient) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	args := m.Called(ctx, key, field, incr)
	return int64(args.Int(0)), args.Error(1)
}

func newTestStore(client *mockHashClient) *RedisStore {
	s := NewRedisStore(client)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return s
}

func TestTemplateKey(t *testing.T) {
	s := newTestStore(new(mockHashClient))
	assert.Equal(t, "prompts:text-analysis:global", s.TemplateKey(PurposeTextAnalysis, ""))
	assert.Equal(t, "prompts:qa-assessment:customer:acme", s.TemplateKey(PurposeQAAssessment, "acme"))
}

func TestLookupPrefersCustomerTemplate(t *testing.T) {
	client := new(mockHashClient)
	client.On("HGetAll", mock.Anything, "prompts:text-analysis:customer:acme").
		Return(map[string]string{"name": "acme", "content": "{resume_text}", "status": "active", "version": "2.0"}, nil)

	tpl, err := newTestStore(client).Lookup(context.Background(), PurposeTextAnalysis, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", tpl.Name)
	assert.Equal(t, "2.0", tpl.Version)
	assert.Equal(t, "acme", tpl.CustomerID)
	assert.Equal(t, "prompts:text-analysis:customer:acme", tpl.Key)
	client.AssertNotCalled(t, "HGetAll", mock.Anything, "prompts:text-analysis:global")
}

func TestLookupFallsBackToGlobal(t *testing.T) {
	client := new(mockHashClient)
	client.On("HGetAll", mock.Anything, "prompts:text-analysis:customer:acme").Return(nil, storage.ErrNotFound)
	client.On("HGetAll", mock.Anything, "prompts:text-analysis:global").
		Return(map[string]string{"name": "global", "content": "{resume_text}"}, nil)

	tpl, err := newTestStore(client).Lookup(context.Background(), PurposeTextAnalysis, "acme")
	require.NoError(t, err)
	assert.Equal(t, "global", tpl.Name)
	assert.Empty(t, tpl.CustomerID)
}

func TestLookupSkipsInactiveTemplate(t *testing.T) {
	client := new(mockHashClient)
	client.On("HGetAll", mock.Anything, "prompts:vision-analysis:customer:acme").
		Return(map[string]string{"name": "draft", "content": "x", "status": "draft"}, nil)
	client.On("HGetAll", mock.Anything, "prompts:vision-analysis:global").Return(nil, storage.ErrNotFound)

	_, err := newTestStore(client).Lookup(context.Background(), PurposeVisionAnalysis, "acme")
	assert.ErrorIs(t, err, ErrTemplateNotFound, "非 active 的模板不应被使用")
}

func TestLookupPropagatesRedisError(t *testing.T) {
	client := new(mockHashClient)
	client.On("HGetAll", mock.Anything, "prompts:text-analysis:customer:acme").Return(nil, errors.New("i/o timeout"))

	_, err := newTestStore(client).Lookup(context.Background(), PurposeTextAnalysis, "acme")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTemplateNotFound)
}

func TestRecordUsage(t *testing.T) {
	client := new(mockHashClient)
	key := "prompts:text-analysis:global"
	client.On("HIncrBy", mock.Anything, key, "usage_count", int64(1)).Return(4, nil)
	client.On("HSet", mock.Anything, key, map[string]string{
		"last_used_at": "2024-05-01T08:00:00Z",
		"updated_at":   "2024-05-01T08:00:00Z",
	}).Return(nil)

	require.NoError(t, newTestStore(client).RecordUsage(context.Background(), Template{Key: key}))
	client.AssertExpectations(t)
}

func TestRecordUsageWithoutKeyIsNoop(t *testing.T) {
	client := new(mockHashClient)
	assert.NoError(t, newTestStore(client).RecordUsage(context.Background(), Template{}))
	client.AssertNotCalled(t, "HIncrBy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveRejectsInvalidTemplate(t *testing.T) {
	s := newTestStore(new(mockHashClient))
	assert.Error(t, s.Save(context.Background(), Template{Purpose: PurposeTextAnalysis, Content: `{"a": 1}`}))
	assert.Error(t, s.Save(context.Background(), Template{Purpose: PurposeTextAnalysis, Content: "  "}))
	assert.Error(t, s.Save(context.Background(), Template{Purpose: "other", Content: "x"}))
}

func TestSeedBuiltins(t *testing.T) {
	client := new(mockHashClient)
	client.On("HSet", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasSuffix(key, ":global")
	}), mock.MatchedBy(func(values map[string]string) bool {
		return values["status"] == "active" && values["version"] == "1.0" && values["content"] != ""
	})).Return(nil)

	n, err := newTestStore(client).SeedBuiltins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	client.AssertNumberOfCalls(t, "HSet", 3)
}
