package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-analyzer/internal/types"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const (
	// MethodPDFLayout Tika 版面解析，包含表格
	MethodPDFLayout = "direct_pdf_layout"
	// MethodDOC 旧版 Word 文档经 Tika 解析
	MethodDOC = "doc_extraction"
)

// TikaExtractor 基于Apache Tika的XHTML输出提取段落和表格
type TikaExtractor struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client      *http.Client
	contentType string
	method      string
	logger      zerolog.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaExtractor)

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(logger zerolog.Logger) TikaOption {
	return func(e *TikaExtractor) {
		e.logger = logger
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaExtractor) {
		if timeout > 0 {
			e.Client.Timeout = timeout
		}
	}
}

// 确保TikaExtractor实现了Strategy接口
var _ Strategy = (*TikaExtractor)(nil)

// NewTikaExtractor 创建指定格式的Tika解析器，仅支持 pdf 和 doc
func NewTikaExtractor(serverURL string, format types.Format, options ...TikaOption) (*TikaExtractor, error) {
	extractor := &TikaExtractor{
		ServerURL:   strings.TrimSuffix(serverURL, "/"),
		Client:      &http.Client{Timeout: 60 * time.Second},
		contentType: format.MIMEType(),
		logger:      zerolog.Nop(),
	}
	switch format {
	case types.FormatPDF:
		extractor.method = MethodPDFLayout
	case types.FormatDOC:
		extractor.method = MethodDOC
	default:
		return nil, types.NewUnsupportedFormatError(string(format))
	}

	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// Name 返回方法名
func (e *TikaExtractor) Name() string { return e.method }

// Extract 请求 Tika 的 HTML 输出，先取正文段落，再追加表格行
func (e *TikaExtractor) Extract(ctx context.Context, data []byte, uri string) (*Raw, error) {
	startTime := time.Now()

	html, err := e.fetchHTML(ctx, data, uri)
	if err != nil {
		e.logger.Warn().Err(err).Str("uri", uri).Msg("Tika解析失败")
		return nil, err
	}

	raw, err := parseTikaHTML(html)
	if err != nil {
		return nil, fmt.Errorf("解析Tika HTML失败: %w", err)
	}
	raw.Method = e.method

	e.logger.Debug().
		Str("uri", uri).
		Interface("meta", raw.Meta).
		Dur("duration", time.Since(startTime)).
		Msg("Tika文本提取完成")
	return raw, nil
}

func (e *TikaExtractor) fetchHTML(ctx context.Context, data []byte, uri string) ([]byte, error) {
	url := fmt.Sprintf("%s/tika", e.ServerURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", e.contentType)
	req.Header.Set("Accept", "text/html")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取Tika响应失败: %w", err)
	}
	return body, nil
}

// parseTikaHTML 把 Tika 的 XHTML 转为文本：表格外的段落在前，表格行在后
func parseTikaHTML(html []byte) (*Raw, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	paragraphs := 0
	doc.Find("body p, body h1, body h2, body h3, body h4, body h5, body h6").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("table").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
			paragraphs++
		}
	})

	// 没有段落标记时退回到整个正文
	if paragraphs == 0 {
		if text := strings.TrimSpace(doc.Find("body").Text()); text != "" && doc.Find("body table").Length() == 0 {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}

	tables := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		// 嵌套表格由外层表格统一处理
		if table.ParentsFiltered("table").Length() > 0 {
			return
		}
		tables++
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if !row.Closest("table").IsSelection(table) {
				return
			}
			var cells []string
			row.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, cell.Text())
			})
			if line := joinCells(cells); line != "" {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		})
	})

	meta := map[string]any{
		"method":               "tika_html",
		"paragraphs_processed": paragraphs,
		"tables_found":         tables,
	}

	// Tika 的 PDF 输出按页包在 div.page 中
	if pages := doc.Find("div.page"); pages.Length() > 0 {
		processed := 0
		pages.Each(func(_ int, p *goquery.Selection) {
			if strings.TrimSpace(p.Text()) != "" {
				processed++
			}
		})
		meta["pages_processed"] = processed
		meta["total_pages"] = pages.Length()
	}

	return &Raw{Text: sb.String(), Meta: meta}, nil
}
