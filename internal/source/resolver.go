package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"resume-analyzer/internal/storage"
	"resume-analyzer/internal/types"
)

// ObjectScheme 对象存储引用的前缀
const ObjectScheme = "minio://"

// Resolver 把 DocumentRef 解析为原始字节
type Resolver struct {
	objects storage.ObjectReader
}

// NewResolver 创建解析器，objects 为空时 minio:// 引用不可用
func NewResolver(objects storage.ObjectReader) *Resolver {
	return &Resolver{objects: objects}
}

// Load 返回文档内容和最终确定的格式
func (r *Resolver) Load(ctx context.Context, ref types.DocumentRef) ([]byte, types.Format, error) {
	format, err := resolveFormat(ref)
	if err != nil {
		return nil, "", err
	}

	// 非 nil 的 Data 即为内联内容，零字节上传也按内联处理
	if ref.Data != nil {
		return ref.Data, format, nil
	}
	if ref.Path == "" {
		return nil, "", types.NewNotFoundError(ref.URI(), "没有内容也没有路径")
	}

	if strings.HasPrefix(ref.Path, ObjectScheme) {
		if r.objects == nil {
			return nil, "", types.NewNotFoundError(ref.Path, "对象存储未启用")
		}
		data, err := r.objects.DownloadFile(ctx, strings.TrimPrefix(ref.Path, ObjectScheme))
		if err != nil {
			return nil, "", err
		}
		return data, format, nil
	}

	data, err := os.ReadFile(ref.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", types.NewNotFoundError(ref.Path, "")
		}
		return nil, "", fmt.Errorf("读取文件 %s 失败: %w", ref.Path, err)
	}
	return data, format, nil
}

// resolveFormat 优先使用声明的格式，否则按文件名推断
func resolveFormat(ref types.DocumentRef) (types.Format, error) {
	if ref.Format != "" {
		return types.ParseFormat(string(ref.Format))
	}
	if ref.Filename != "" {
		return types.FormatFromFilename(ref.Filename)
	}
	return types.FormatFromFilename(ref.Path)
}
