package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"resume-analyzer/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// MessagePublisher 事件发布接口
type MessagePublisher interface {
	// PublishJSON 发布JSON格式消息
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data any) error
	// EnsureExchange 确保交换机存在
	EnsureExchange(exchangeName, exchangeType string) error
	Close() error
}

// 确保RabbitMQ实现了MessagePublisher接口
var _ MessagePublisher = (*RabbitMQ)(nil)

// RabbitMQ 批处理事件的发布端
type RabbitMQ struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	mu          sync.Mutex      // 保护 channel 和 exchangeMap
	exchangeMap map[string]bool // 记录已声明的exchange
	logger      zerolog.Logger
}

// NewRabbitMQ 创建RabbitMQ客户端
func NewRabbitMQ(cfg *config.RabbitMQConfig, logger zerolog.Logger) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道: %w", err)
	}

	logger.Info().Msg("成功连接到RabbitMQ服务器")
	return &RabbitMQ{
		conn:        conn,
		channel:     ch,
		exchangeMap: make(map[string]bool),
		logger:      logger,
	}, nil
}

// ensureChannel 通道被服务端关闭后重新打开，调用方需持有锁
func (r *RabbitMQ) ensureChannel() (*amqp.Channel, error) {
	if r.channel != nil && !r.channel.IsClosed() {
		return r.channel, nil
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("重新创建RabbitMQ通道失败: %w", err)
	}
	r.channel = ch
	return ch, nil
}

// Close 关闭通道和连接
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		_ = r.channel.Close()
	}
	return r.conn.Close()
}

// EnsureExchange 声明持久化的exchange
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}
	// 防止尝试声明默认交换机
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("不能声明默认交换机 '%s'", exchangeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch, err := r.ensureChannel()
	if err != nil {
		return err
	}
	err = ch.ExchangeDeclare(
		exchangeName, // exchange名称
		exchangeType, // exchange类型
		true,         // 持久化
		false,        // 自动删除
		false,        // 内部专用
		false,        // 非阻塞
		nil,          // 参数
	)
	if err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}

	r.exchangeMap[exchangeName] = true
	r.logger.Debug().Str("exchange", exchangeName).Msg("已确保exchange存在")
	return nil
}

// PublishJSON 以持久化消息发布JSON
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.ensureChannel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(
		ctx,
		exchangeName, // exchange名
		routingKey,   // 路由键
		false,        // 强制
		false,        // 立即
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
