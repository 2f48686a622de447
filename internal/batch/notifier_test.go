package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"resume-analyzer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, exchangeName, routingKey string, data any) error {
	return m.Called(ctx, exchangeName, routingKey, data).Error(0)
}

func (m *mockPublisher) EnsureExchange(exchangeName, exchangeType string) error {
	return m.Called(exchangeName, exchangeType).Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func sampleRun() types.BatchRun {
	return types.BatchRun{
		ID: "run-1",
		Results: map[string]types.AnalysisResult{
			"a": {OverallScore: 80, ProcessingMethod: types.MethodTextAnalysis},
			"b": {OverallScore: 25, ProcessingMethod: types.MethodFailedParse, ParsingError: "JSON parsing failed: EOF"},
		},
		Attempted: 2,
		Succeeded: 1,
		Failed:    1,
		Elapsed:   1500 * time.Millisecond,
	}
}

func TestNewCompletedEvent(t *testing.T) {
	event := NewCompletedEvent(sampleRun())
	assert.Equal(t, "run-1", event.BatchID)
	assert.Equal(t, int64(1500), event.ElapsedMS)
	require.Len(t, event.Items, 2)
	assert.Equal(t, "failed-parse", event.Items["b"].Method)
	assert.Equal(t, "JSON parsing failed: EOF", event.Items["b"].Error)
	assert.Empty(t, event.Items["a"].Error)
}

func TestQueueNotifierPublishes(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("EnsureExchange", "resume.analysis.exchange", "topic").Return(nil)
	publisher.On("PublishJSON", mock.Anything, "resume.analysis.exchange", "batch.completed", mock.MatchedBy(func(e CompletedEvent) bool {
		return e.BatchID == "run-1" && e.Failed == 1
	})).Return(nil)

	notifier, err := NewQueueNotifier(publisher, "resume.analysis.exchange", "")
	require.NoError(t, err)
	require.NoError(t, notifier.NotifyBatch(context.Background(), sampleRun()))
	publisher.AssertExpectations(t)
}

func TestQueueNotifierErrors(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("EnsureExchange", mock.Anything, mock.Anything).Return(errors.New("connection closed")).Once()
	_, err := NewQueueNotifier(publisher, "ex", "done")
	assert.Error(t, err, "声明交换机失败时应返回错误")

	publisher.On("EnsureExchange", mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishJSON", mock.Anything, "ex", "done", mock.Anything).Return(errors.New("channel closed"))
	notifier, err := NewQueueNotifier(publisher, "ex", "done")
	require.NoError(t, err)
	assert.ErrorContains(t, notifier.NotifyBatch(context.Background(), sampleRun()), "channel closed")
}
