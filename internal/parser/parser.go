package parser

import (
	"context"
	"strings"
)

// Raw 单个提取策略的原始输出，尚未清洗和评分
type Raw struct {
	Text     string
	Method   string         // 结果的方法名，例如 direct_pdf_pages
	Meta     map[string]any // 策略自身的计数，如 pages_processed、tables_found
	Encoding string         // 纯文本解码时使用的编码
}

// Strategy 提取策略接口
type Strategy interface {
	// Name 返回方法名，失败时也用于标记零置信度结果
	Name() string
	// Extract 从文档字节中提取原始文本
	Extract(ctx context.Context, data []byte, uri string) (*Raw, error)
}

// joinCells 去掉空单元格后用 " | " 连接一行
func joinCells(cells []string) string {
	clean := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			clean = append(clean, c)
		}
	}
	return strings.Join(clean, " | ")
}
