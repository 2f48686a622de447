package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-analyzer/internal/config"
	"resume-analyzer/internal/tracing"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("redis key not found")

// 为Redis操作定义专用tracer
var redisTracer = tracing.Tracer("storage/redis")

// Redis 封装 Redis 客户端
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
	prefix string
}

// NewRedisAdapter 创建 Redis 连接并注册 OpenTelemetry 钩子
func NewRedisAdapter(cfg *config.RedisConfig, keyPrefix string) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
		prefix: strings.TrimSuffix(keyPrefix, ":"),
	}, nil
}

// FormatKey 拼接带前缀的键，例如 prefix:customer:text-analysis
func (r *Redis) FormatKey(parts ...string) string {
	if r.prefix == "" {
		return strings.Join(parts, ":")
	}
	return r.prefix + ":" + strings.Join(parts, ":")
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// HGetAll 读取整个 HASH，键不存在时返回 ErrNotFound
func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	ctx, span := redisTracer.Start(ctx, "Redis.HGetAll", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	)

	vals, err := r.Client.HGetAll(ctx, key).Result()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, err
	}
	// HGETALL 对不存在的键返回空 map
	if len(vals) == 0 {
		span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
		return nil, ErrNotFound
	}
	span.SetAttributes(attribute.Bool("db.redis.key_exists", true))
	return vals, nil
}

// HSet 写入 HASH 字段
func (r *Redis) HSet(ctx context.Context, key string, values map[string]string) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	args := make([]any, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	return r.Client.HSet(ctx, key, args...).Err()
}

// HIncrBy 对 HASH 字段做原子自增
func (r *Redis) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	if r.Client == nil {
		return 0, fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.HIncrBy(ctx, key, field, incr).Result()
}
