package parser

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// MethodPlainText 纯文本解码
const MethodPlainText = "plain_text"

// fallbackEncodings UTF-8 失败后依次尝试的编码
var fallbackEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
}

// PlainTextExtractor 按 UTF-8 优先的顺序解码纯文本
type PlainTextExtractor struct{}

// NewPlainTextExtractor 创建纯文本提取器
func NewPlainTextExtractor() *PlainTextExtractor { return &PlainTextExtractor{} }

// Name 返回方法名
func (e *PlainTextExtractor) Name() string { return MethodPlainText }

// Extract 解码文本并记录使用的编码
func (e *PlainTextExtractor) Extract(_ context.Context, data []byte, _ string) (*Raw, error) {
	if utf8.Valid(data) {
		return plainRaw(strings.TrimPrefix(string(data), "\uFEFF"), "utf-8"), nil
	}

	for _, fb := range fallbackEncodings {
		decoded, err := fb.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		return plainRaw(string(decoded), fb.name), nil
	}
	return nil, fmt.Errorf("无法解码文本文件，不支持的编码")
}

func plainRaw(text, enc string) *Raw {
	return &Raw{
		Text:     text,
		Method:   MethodPlainText,
		Encoding: enc,
		Meta: map[string]any{
			"method":   MethodPlainText,
			"encoding": enc,
		},
	}
}
