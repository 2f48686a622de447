package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"resume-analyzer/internal/config"
	"resume-analyzer/internal/types"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ObjectReader 按对象名读取简历原件
type ObjectReader interface {
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)
}

// 确保MinIO实现了ObjectReader接口
var _ ObjectReader = (*MinIO)(nil)

// MinIO 简历原件的对象存储
type MinIO struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确认默认存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, logger zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("初始化MinIO客户端")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client: client,
		bucket: cfg.BucketName,
		logger: logger,
	}
	if err := m.ensureBucketExists(ctx, cfg.BucketName); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureBucketExists 只检查存在性，不负责创建，简历桶由上游写入方管理
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		return fmt.Errorf("存储桶 %s 不存在", bucketName)
	}
	return nil
}

// splitObjectName 解析 "bucket/key" 形式的对象名，缺省使用默认桶
func (m *MinIO) splitObjectName(objectName string) (string, string) {
	objectName = strings.TrimPrefix(objectName, "/")
	if parts := strings.SplitN(objectName, "/", 2); len(parts) == 2 && parts[0] != "" {
		return parts[0], parts[1]
	}
	return m.bucket, objectName
}

// DownloadFile 下载对象的全部内容，对象不存在时返回 NotFoundError
func (m *MinIO) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	bucketName, key := m.splitObjectName(objectName)
	m.logger.Debug().Str("bucket", bucketName).Str("object", key).Msg("下载文件")

	obj, err := m.client.GetObject(ctx, bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.wrapError(bucketName, key, err)
	}
	defer obj.Close()

	// GetObject 是惰性的，Stat 才会真正发起请求
	if _, err := obj.Stat(); err != nil {
		return nil, m.wrapError(bucketName, key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucketName, key, err)
	}
	return data, nil
}

func (m *MinIO) wrapError(bucketName, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return types.NewNotFoundError(bucketName+"/"+key, err.Error())
	}
	return fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, key, err)
}
