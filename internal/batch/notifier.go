package batch

import (
	"context"
	"fmt"
	"time"

	"resume-analyzer/internal/storage"
	"resume-analyzer/internal/types"
)

// DefaultRoutingKey 批处理完成事件的路由键
const DefaultRoutingKey = "batch.completed"

// ItemSummary 事件中每个文档的摘要
type ItemSummary struct {
	Method string  `json:"processing_method"`
	Score  float64 `json:"overall_score"`
	Error  string  `json:"parsing_error,omitempty"`
}

// CompletedEvent 批处理完成事件
type CompletedEvent struct {
	BatchID    string                 `json:"batch_id"`
	Attempted  int                    `json:"attempted"`
	Succeeded  int                    `json:"succeeded"`
	Failed     int                    `json:"failed"`
	ElapsedMS  int64                  `json:"elapsed_ms"`
	FinishedAt time.Time              `json:"finished_at"`
	Items      map[string]ItemSummary `json:"items"`
}

// NewCompletedEvent 由批处理结果生成事件
func NewCompletedEvent(run types.BatchRun) CompletedEvent {
	items := make(map[string]ItemSummary, len(run.Results))
	for key, result := range run.Results {
		items[key] = ItemSummary{
			Method: string(result.ProcessingMethod),
			Score:  result.OverallScore,
			Error:  result.ParsingError,
		}
	}
	return CompletedEvent{
		BatchID:    run.ID,
		Attempted:  run.Attempted,
		Succeeded:  run.Succeeded,
		Failed:     run.Failed,
		ElapsedMS:  run.Elapsed.Milliseconds(),
		FinishedAt: run.FinishedAt,
		Items:      items,
	}
}

// QueueNotifier 通过消息队列发布批处理完成事件
type QueueNotifier struct {
	publisher  storage.MessagePublisher
	exchange   string
	routingKey string
}

// NewQueueNotifier 创建通知器并声明 topic 交换机
func NewQueueNotifier(publisher storage.MessagePublisher, exchange, routingKey string) (*QueueNotifier, error) {
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	if err := publisher.EnsureExchange(exchange, "topic"); err != nil {
		return nil, fmt.Errorf("声明批处理事件交换机失败: %w", err)
	}
	return &QueueNotifier{publisher: publisher, exchange: exchange, routingKey: routingKey}, nil
}

// NotifyBatch 实现 Notifier 接口
func (n *QueueNotifier) NotifyBatch(ctx context.Context, run types.BatchRun) error {
	if err := n.publisher.PublishJSON(ctx, n.exchange, n.routingKey, NewCompletedEvent(run)); err != nil {
		return fmt.Errorf("发布批处理完成事件失败: %w", err)
	}
	return nil
}
