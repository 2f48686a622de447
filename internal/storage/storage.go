package storage

import (
	"context"
	"errors"
	"fmt"

	"resume-analyzer/internal/config"
	"resume-analyzer/internal/logger"
)

// Storage 存储管理器，聚合按配置启用的外部依赖
type Storage struct {
	// 对象存储，简历原件
	MinIO *MinIO

	// 批处理事件
	RabbitMQ *RabbitMQ

	// 提示词模板
	Redis *Redis
}

// NewStorage 根据配置初始化启用的存储，任一失败即关闭已建立的连接并返回错误
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	log := logger.Component("storage")
	s := &Storage{}
	var err error

	if cfg.MinIO.Enabled {
		s.MinIO, err = NewMinIO(ctx, &cfg.MinIO, log)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("MinIO: %w", err)
		}
		log.Info().Msg("MinIO客户端初始化成功")
	}

	if cfg.RabbitMQ.Enabled {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, log)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("RabbitMQ: %w", err)
		}
		if err := s.RabbitMQ.EnsureExchange(cfg.RabbitMQ.BatchEventsExchange, "topic"); err != nil {
			s.Close()
			return nil, fmt.Errorf("RabbitMQ: %w", err)
		}
	}

	if cfg.Prompt.UseRedis {
		s.Redis, err = NewRedisAdapter(&cfg.Redis, cfg.Prompt.KeyPrefix)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("Redis: %w", err)
		}
		log.Info().Str("address", cfg.Redis.Address).Msg("Redis客户端初始化成功")
	}

	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() error {
	var errs []error
	if s.RabbitMQ != nil {
		errs = append(errs, s.RabbitMQ.Close())
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	return errors.Join(errs...)
}
