package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// MethodDOCX OOXML 文档直接解析
const MethodDOCX = "docx_extraction"

// documentPart word 文档正文所在的包内路径
const documentPart = "word/document.xml"

// DOCXExtractor 直接读取 docx 包中的 document.xml
type DOCXExtractor struct{}

// NewDOCXExtractor 创建 docx 提取器
func NewDOCXExtractor() *DOCXExtractor { return &DOCXExtractor{} }

// Name 返回方法名
func (e *DOCXExtractor) Name() string { return MethodDOCX }

// Extract 先输出表格外的非空段落，再按表格输出行，每个表格后空一行
func (e *DOCXExtractor) Extract(ctx context.Context, data []byte, uri string) (*Raw, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("打开docx压缩包失败: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, fmt.Errorf("docx中缺少 %s", documentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", documentPart, err)
	}
	defer rc.Close()

	body, err := parseDocumentXML(ctx, rc)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, p := range body.paragraphs {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	for _, rows := range body.tables {
		for _, row := range rows {
			sb.WriteString(row)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return &Raw{
		Text:   sb.String(),
		Method: MethodDOCX,
		Meta: map[string]any{
			"method":               "ooxml",
			"paragraphs_processed": len(body.paragraphs),
			"tables_found":         len(body.tables),
		},
	}, nil
}

type docxBody struct {
	paragraphs []string
	tables     [][]string // 每个表格的行文本
}

// parseDocumentXML 流式遍历 WordprocessingML，只关心段落、文本、表格结构
func parseDocumentXML(ctx context.Context, r io.Reader) (*docxBody, error) {
	dec := xml.NewDecoder(r)
	body := &docxBody{}

	var (
		para     strings.Builder
		cell     strings.Builder
		cells    []string
		rows     []string
		inText   bool
		tblDepth int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					rows = nil
				}
			case "tr":
				if tblDepth == 1 {
					cells = nil
				}
			case "tc":
				if tblDepth == 1 {
					cell.Reset()
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := para.String()
				if tblDepth == 0 {
					if strings.TrimSpace(text) != "" {
						body.paragraphs = append(body.paragraphs, text)
					}
				} else {
					if cell.Len() > 0 {
						cell.WriteByte('\n')
					}
					cell.WriteString(text)
				}
			case "tc":
				if tblDepth == 1 {
					cells = append(cells, cell.String())
				}
			case "tr":
				if tblDepth == 1 {
					if line := joinCells(cells); line != "" {
						rows = append(rows, line)
					}
				}
			case "tbl":
				if tblDepth == 1 {
					body.tables = append(body.tables, rows)
				}
				tblDepth--
			}
		}
	}
	return body, nil
}
