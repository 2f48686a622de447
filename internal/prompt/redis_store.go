package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-analyzer/internal/storage"
)

// 模板 HASH 的字段
const (
	fieldName       = "name"
	fieldContent    = "content"
	fieldVersion    = "version"
	fieldStatus     = "status"
	fieldUsageCount = "usage_count"
	fieldLastUsedAt = "last_used_at"
	fieldUpdatedAt  = "updated_at"

	statusActive   = "active"
	globalScope    = "global"
	customerScope  = "customer"
	defaultVersion = "1.0"
)

// hashClient RedisStore 需要的 HASH 操作，*storage.Redis 实现了它
type hashClient interface {
	FormatKey(parts ...string) string
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values map[string]string) error
	HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error)
}

var _ hashClient = (*storage.Redis)(nil)

// RedisStore 基于 Redis HASH 的模板存储。
// 键格式: {prefix}:{purpose}:global 或 {prefix}:{purpose}:customer:{id}
type RedisStore struct {
	client hashClient
	now    func() time.Time
}

// NewRedisStore 创建 Redis 模板存储
func NewRedisStore(client hashClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// TemplateKey 返回模板的存储键，customerID 为空时为全局模板
func (s *RedisStore) TemplateKey(purpose Purpose, customerID string) string {
	if customerID == "" {
		return s.client.FormatKey(string(purpose), globalScope)
	}
	return s.client.FormatKey(string(purpose), customerScope, customerID)
}

// Lookup 实现 Store 接口
func (s *RedisStore) Lookup(ctx context.Context, purpose Purpose, customerID string) (Template, error) {
	if customerID != "" {
		tpl, err := s.load(ctx, purpose, customerID)
		if err == nil {
			return tpl, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return Template{}, err
		}
	}
	return s.load(ctx, purpose, "")
}

func (s *RedisStore) load(ctx context.Context, purpose Purpose, customerID string) (Template, error) {
	key := s.TemplateKey(purpose, customerID)
	fields, err := s.client.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, fmt.Errorf("读取提示词模板 %s 失败: %w", key, err)
	}
	// 停用或内容为空的模板视为不存在
	if status := fields[fieldStatus]; status != "" && status != statusActive {
		return Template{}, ErrTemplateNotFound
	}
	if strings.TrimSpace(fields[fieldContent]) == "" {
		return Template{}, ErrTemplateNotFound
	}
	return Template{
		Name:       fields[fieldName],
		Purpose:    purpose,
		Content:    fields[fieldContent],
		Version:    fields[fieldVersion],
		CustomerID: customerID,
		Key:        key,
	}, nil
}

// RecordUsage 实现 Store 接口，自增使用次数并记录最近使用时间
func (s *RedisStore) RecordUsage(ctx context.Context, tpl Template) error {
	if tpl.Key == "" {
		return nil
	}
	if _, err := s.client.HIncrBy(ctx, tpl.Key, fieldUsageCount, 1); err != nil {
		return fmt.Errorf("更新模板使用次数失败: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339)
	return s.client.HSet(ctx, tpl.Key, map[string]string{fieldLastUsedAt: now, fieldUpdatedAt: now})
}

// Save 写入或覆盖一个模板，写入前校验模板格式
func (s *RedisStore) Save(ctx context.Context, tpl Template) error {
	if _, ok := builtinTemplates[tpl.Purpose]; !ok {
		return fmt.Errorf("未知的提示词用途: %s", tpl.Purpose)
	}
	if err := validateTemplate(tpl.Content); err != nil {
		return err
	}
	version := tpl.Version
	if version == "" {
		version = defaultVersion
	}
	name := tpl.Name
	if name == "" {
		name = string(tpl.Purpose)
	}
	return s.client.HSet(ctx, s.TemplateKey(tpl.Purpose, tpl.CustomerID), map[string]string{
		fieldName:      name,
		fieldContent:   tpl.Content,
		fieldVersion:   version,
		fieldStatus:    statusActive,
		fieldUpdatedAt: s.now().UTC().Format(time.RFC3339),
	})
}

// SeedBuiltins 把内置模板写为全局默认模板
func (s *RedisStore) SeedBuiltins(ctx context.Context) (int, error) {
	count := 0
	for _, purpose := range Purposes() {
		err := s.Save(ctx, Template{
			Name:    "Default " + string(purpose),
			Purpose: purpose,
			Content: builtinTemplates[purpose],
		})
		if err != nil {
			return count, fmt.Errorf("写入 %s 模板失败: %w", purpose, err)
		}
		count++
	}
	return count, nil
}

// validateTemplate 用空值渲染一次，检查花括号是否成对
func validateTemplate(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("模板内容不能为空")
	}
	vars := make(map[string]string)
	for _, name := range Variables(content) {
		vars[name] = ""
	}
	if _, err := Format(content, vars); err != nil {
		return fmt.Errorf("模板格式无效: %w", err)
	}
	return nil
}
